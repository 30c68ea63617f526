package plaid

import (
	"context"
	"log"
	"time"

	"github.com/plaid/plaid-go/v41/plaid"
	"github.com/shopspring/decimal"

	"centsible-server/src/engine"
	"centsible-server/src/models"
)

func NewPlaidClient(clientID, secret, env string) *plaid.APIClient {
	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", clientID)
	configuration.AddDefaultHeader("PLAID-SECRET", secret)

	switch env {
	case "sandbox":
		configuration.UseEnvironment(plaid.Sandbox)
	case "production":
		configuration.UseEnvironment(plaid.Production)
	default:
		log.Fatalf("Invalid Plaid environment: %s", env)
	}

	return plaid.NewAPIClient(configuration)
}

const fetchCount = 500

// FetchTransactions pulls the trailing window of transactions and hands them
// back as raw feed entries for the normalizer. Overlapping windows across
// runs are fine; the reconciler is built to be replayed.
func FetchTransactions(ctx context.Context, client *plaid.APIClient, accessToken string, days int) ([]engine.RawTransaction, error) {
	endDate := time.Now()
	startDate := endDate.AddDate(0, 0, -days)

	request := plaid.NewTransactionsGetRequest(accessToken, startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	options := plaid.TransactionsGetRequestOptions{
		Count: plaid.PtrInt32(fetchCount),
	}
	request.SetOptions(options)

	resp, _, err := client.PlaidApi.TransactionsGet(ctx).TransactionsGetRequest(*request).Execute()
	if err != nil {
		return nil, err
	}

	transactions := resp.GetTransactions()
	raws := make([]engine.RawTransaction, 0, len(transactions))
	for _, txn := range transactions {
		raws = append(raws, toRawTransaction(txn))
	}
	return raws, nil
}

// FetchAccounts pulls current balance snapshots for every linked account.
func FetchAccounts(ctx context.Context, client *plaid.APIClient, accessToken string) ([]models.Account, error) {
	request := plaid.NewAccountsGetRequest(accessToken)
	resp, _, err := client.PlaidApi.AccountsGet(ctx).AccountsGetRequest(*request).Execute()
	if err != nil {
		return nil, err
	}

	plaidAccounts := resp.GetAccounts()
	accounts := make([]models.Account, 0, len(plaidAccounts))
	for _, acc := range plaidAccounts {
		accounts = append(accounts, toAccount(acc))
	}
	return accounts, nil
}

func toRawTransaction(txn plaid.Transaction) engine.RawTransaction {
	amount := txn.GetAmount()
	pending := txn.GetPending()
	location := txn.GetLocation()

	raw := engine.RawTransaction{
		TransactionID: txn.GetTransactionId(),
		AccountID:     txn.GetAccountId(),
		Amount:        &amount,
		Currency:      txn.GetIsoCurrencyCode(),
		Date:          txn.GetDate(),
		Name:          txn.GetName(),
		Category:      txn.GetCategory(),
		Pending:       &pending,
		Location: engine.RawLocation{
			Address:    nullableString(location.GetAddressOk()),
			City:       nullableString(location.GetCityOk()),
			Region:     nullableString(location.GetRegionOk()),
			PostalCode: nullableString(location.GetPostalCodeOk()),
			Country:    nullableString(location.GetCountryOk()),
		},
	}
	raw.MerchantName = nullableString(txn.GetMerchantNameOk())
	if date, ok := txn.GetAuthorizedDateOk(); ok && date != nil {
		raw.AuthorizedDate = *date
	}
	return raw
}

func toAccount(acc plaid.AccountBase) models.Account {
	balances := acc.GetBalances()

	account := models.Account{
		AccountID:    acc.GetAccountId(),
		Name:         acc.GetName(),
		OfficialName: nullableString(acc.GetOfficialNameOk()),
		Type:         string(acc.GetType()),
		Subtype:      string(acc.GetSubtype()),
		Currency:     balances.GetIsoCurrencyCode(),
	}
	if account.Currency == "" {
		account.Currency = "USD"
	}
	if available, ok := balances.GetAvailableOk(); ok && available != nil {
		d := decimal.NewFromFloat(*available)
		account.BalanceAvailable = &d
	}
	if current, ok := balances.GetCurrentOk(); ok && current != nil {
		d := decimal.NewFromFloat(*current)
		account.BalanceCurrent = &d
	}
	return account
}

// nullableString copies an optional response field so the value does not
// alias the decoded response struct.
func nullableString(v *string, ok bool) *string {
	if !ok || v == nil {
		return nil
	}
	s := *v
	return &s
}
