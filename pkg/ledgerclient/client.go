package ledgerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ClientConfig represents the configuration for the ledger API client.
type ClientConfig struct {
	APIURL  string
	Timeout time.Duration // Default: 30 seconds
}

// Client is a ledger GraphQL API client.
type Client struct {
	httpClient *http.Client
	endpoint   string
}

// NewClient creates a new ledger API client.
func NewClient(config ClientConfig) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		endpoint: strings.TrimRight(config.APIURL, "/") + "/graphql",
	}
}

const accountFields = `id balance createdAt kind`

const transactionFields = `id kind amount occurredAt account { ` + accountFields + ` }`

// Do executes a GraphQL operation and decodes its data into out.
// Server-reported errors are returned as *ResponseError.
func (c *Client) Do(ctx context.Context, query string, vars map[string]interface{}, out interface{}) error {
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseError(resp)
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []GraphQLError  `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return &ResponseError{StatusCode: resp.StatusCode, Errors: envelope.Errors}
	}

	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to decode data: %w", err)
	}
	return nil
}

// FetchAccounts returns every account in creation order.
func (c *Client) FetchAccounts(ctx context.Context) ([]Account, error) {
	var data struct {
		AllAccounts []Account `json:"allAccounts"`
	}
	if err := c.Do(ctx, `{ allAccounts { `+accountFields+` } }`, nil, &data); err != nil {
		return nil, err
	}
	return data.AllAccounts, nil
}

// FetchTransactions returns every transaction, oldest first.
func (c *Client) FetchTransactions(ctx context.Context) ([]Transaction, error) {
	var data struct {
		AllTransactions []Transaction `json:"allTransactions"`
	}
	if err := c.Do(ctx, `{ allTransactions { `+transactionFields+` } }`, nil, &data); err != nil {
		return nil, err
	}
	return data.AllTransactions, nil
}

// FetchAccountTransactions returns the transactions of one account.
func (c *Client) FetchAccountTransactions(ctx context.Context, accountID string) ([]Transaction, error) {
	var data struct {
		AccountTransactions []Transaction `json:"accountTransactions"`
	}
	query := `query($id: ID!) { accountTransactions(id: $id) { ` + transactionFields + ` } }`
	if err := c.Do(ctx, query, map[string]interface{}{"id": accountID}, &data); err != nil {
		return nil, err
	}
	return data.AccountTransactions, nil
}

// FetchSnapshot returns accounts and transactions in a single request.
func (c *Client) FetchSnapshot(ctx context.Context) (*Snapshot, error) {
	var snap Snapshot
	query := `{ instanceId allAccounts { ` + accountFields + ` } allTransactions { ` + transactionFields + ` } }`
	if err := c.Do(ctx, query, nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// FetchBalanceStats returns the server-side balance aggregate.
func (c *Client) FetchBalanceStats(ctx context.Context) (*BalanceStats, error) {
	var data struct {
		TotalBalance BalanceStats `json:"totalBalance"`
	}
	if err := c.Do(ctx, `{ totalBalance { count sum average } }`, nil, &data); err != nil {
		return nil, err
	}
	return &data.TotalBalance, nil
}

// FetchTransactionStats returns the server-side transaction aggregate.
func (c *Client) FetchTransactionStats(ctx context.Context) (*TransactionStats, error) {
	var data struct {
		TransactionStats TransactionStats `json:"transactionStats"`
	}
	if err := c.Do(ctx, `{ transactionStats { count sumDeposits sumWithdrawals } }`, nil, &data); err != nil {
		return nil, err
	}
	return &data.TransactionStats, nil
}

// parseError parses a non-200 response from the ledger API.
func (c *Client) parseError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ledger API error (status %d): failed to read error response", resp.StatusCode)
	}

	var errResp struct {
		Errors []GraphQLError `json:"errors"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil || len(errResp.Errors) == 0 {
		return fmt.Errorf("ledger API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return &ResponseError{StatusCode: resp.StatusCode, Errors: errResp.Errors}
}
