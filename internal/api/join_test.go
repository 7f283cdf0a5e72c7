package api

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoin_ResolvesEachTypeExactlyOnce(t *testing.T) {
	c, fc := newTestClient(
		`2 A {"amount":100}`,
		`1 A {"positions":[]}`,
	)

	results, err := c.Join(context.Background(), CompactPortfolioRequest(), CashRequest())
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.JSONEq(t, `{"positions":[]}`, string(results["compactPortfolio"]))
	assert.JSONEq(t, `{"amount":100}`, string(results["cash"]))

	// Both answered subscriptions are released.
	assert.Contains(t, fc.written, "unsub 1")
	assert.Contains(t, fc.written, "unsub 2")
}

func TestJoin_IgnoresUnexpectedTypes(t *testing.T) {
	c, _ := newTestClient(
		`9 A {"stray":true}`,
		`1 A {"positions":[]}`,
	)

	results, err := c.Join(context.Background(), CompactPortfolioRequest())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results, "compactPortfolio")
}

func TestJoin_PropagatesServerError(t *testing.T) {
	c, _ := newTestClient(`1 E {"errors":[]}`)

	_, err := c.Join(context.Background(), CompactPortfolioRequest())
	require.Error(t, err)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
}
