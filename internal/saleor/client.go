package saleor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrProductNotFound is returned when the remote API resolves a product query
// to null.
var ErrProductNotFound = errors.New("product not found")

// ResponseError is a top-level GraphQL error delivered with a 2xx response.
// It is a business error, not a transport failure.
type ResponseError struct {
	Message string
}

func (e *ResponseError) Error() string {
	return e.Message
}

// Client talks to the remote commerce GraphQL API. Requests are POSTed as
// {query, variables} JSON bodies; a non-2xx status is a transport failure,
// while errors embedded in a 2xx response surface as *ResponseError or as the
// Errors field of the operation payload.
type Client struct {
	endpoint string
	channel  string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[[]byte]
}

// NewClient builds a client for the given /graphql/ endpoint and sales
// channel. The breaker shields the storefront from a flapping remote API.
func NewClient(endpoint, channel string) *Client {
	return &Client{
		endpoint: endpoint,
		channel:  channel,
		http: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:    "saleor-graphql",
			Timeout: 30 * time.Second,
		}),
	}
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

func (c *Client) do(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshal graphql request failed: %w", err)
	}

	data, err := c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build graphql request failed: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("graphql request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("network error: %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return err
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []APIError      `json:"errors"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("unmarshal graphql response failed: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return &ResponseError{Message: envelope.Errors[0].Message}
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("unmarshal graphql data failed: %w", err)
		}
	}
	return nil
}

const accountRegisterMutation = `mutation AccountRegister($email: String!, $password: String!) {
  accountRegister(input: {email: $email, password: $password}) {
    user { email }
    errors { field message }
  }
}`

// AccountRegister asks the remote API to create an account. A nil error with a
// populated Errors list means the transport succeeded but the business
// operation did not; callers must inspect both.
func (c *Client) AccountRegister(ctx context.Context, email, password string) (*AccountRegisterResult, error) {
	var payload struct {
		AccountRegister AccountRegisterResult `json:"accountRegister"`
	}
	vars := map[string]interface{}{"email": email, "password": password}
	if err := c.do(ctx, accountRegisterMutation, vars, &payload); err != nil {
		return nil, err
	}
	return &payload.AccountRegister, nil
}

const tokenCreateMutation = `mutation TokenCreate($email: String!, $password: String!) {
  tokenCreate(email: $email, password: $password) {
    token
    user { email }
    errors { field message }
  }
}`

// TokenCreate mints a bearer token for the credentials. Token is empty and
// Errors populated when the remote API rejects them.
func (c *Client) TokenCreate(ctx context.Context, email, password string) (*TokenCreateResult, error) {
	var payload struct {
		TokenCreate TokenCreateResult `json:"tokenCreate"`
	}
	vars := map[string]interface{}{"email": email, "password": password}
	if err := c.do(ctx, tokenCreateMutation, vars, &payload); err != nil {
		return nil, err
	}
	return &payload.TokenCreate, nil
}

const productsQuery = `query Products($first: Int!, $channel: String!) {
  products(first: $first, channel: $channel) {
    edges {
      node {
        id
        name
        media { url }
        pricing { priceRange { start { gross { amount } } } }
        variants {
          pricing {
            price { gross { amount } }
            priceUndiscounted { gross { amount } }
          }
        }
      }
    }
  }
}`

// Products fetches the first N products of the configured channel, flattened
// for listing cards.
func (c *Client) Products(ctx context.Context, first int) ([]Product, error) {
	var payload struct {
		Products struct {
			Edges []struct {
				Node productNode `json:"node"`
			} `json:"edges"`
		} `json:"products"`
	}
	vars := map[string]interface{}{"first": first, "channel": c.channel}
	if err := c.do(ctx, productsQuery, vars, &payload); err != nil {
		return nil, err
	}

	products := make([]Product, len(payload.Products.Edges))
	for i, edge := range payload.Products.Edges {
		products[i] = mapProduct(edge.Node)
	}
	return products, nil
}

const productQuery = `query Product($id: ID!, $channel: String!) {
  product(id: $id, channel: $channel) {
    id
    name
    description
    media { url }
    pricing { priceRange { start { gross { amount } } } }
    variants {
      pricing {
        price { gross { amount } }
        priceUndiscounted { gross { amount } }
      }
    }
  }
}`

// Product fetches one product by id for the detail page.
func (c *Client) Product(ctx context.Context, id string) (*Product, error) {
	var payload struct {
		Product *productNode `json:"product"`
	}
	vars := map[string]interface{}{"id": id, "channel": c.channel}
	if err := c.do(ctx, productQuery, vars, &payload); err != nil {
		return nil, err
	}
	if payload.Product == nil {
		return nil, ErrProductNotFound
	}
	p := mapProduct(*payload.Product)
	return &p, nil
}
