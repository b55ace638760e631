package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/estimate-cli/internal/model"
	"github.com/sells-group/estimate-cli/pkg/scopestack"
)

// AccountDefaults pins the payment term and rate table instead of using the
// account defaults.
type AccountDefaults struct {
	PaymentTermID string
	RateTableID   string
}

// LoadAccount resolves the account context: the credential's account and
// the payment term and rate table new projects use. Lookups run
// concurrently.
func LoadAccount(ctx context.Context, client scopestack.Client, defaults AccountDefaults) (*Account, error) {
	var (
		me     *model.Account
		rates  []model.RateTable
		terms  []model.PaymentTerm
		g, gctx = errgroup.WithContext(ctx)
	)

	g.Go(func() error {
		var err error
		me, err = client.Me(gctx)
		return eris.Wrap(err, "pipeline: load account")
	})
	if defaults.RateTableID == "" {
		g.Go(func() error {
			var err error
			rates, err = client.ListRateTables(gctx)
			return eris.Wrap(err, "pipeline: load rate tables")
		})
	}
	if defaults.PaymentTermID == "" {
		g.Go(func() error {
			var err error
			terms, err = client.ListPaymentTerms(gctx)
			return eris.Wrap(err, "pipeline: load payment terms")
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	acct := &Account{
		AccountID:     me.AccountID,
		AccountSlug:   me.AccountSlug,
		UserName:      me.UserName,
		PaymentTermID: defaults.PaymentTermID,
		RateTableID:   defaults.RateTableID,
	}
	if acct.RateTableID == "" {
		acct.RateTableID = defaultRateTable(rates)
	}
	if acct.PaymentTermID == "" {
		acct.PaymentTermID = defaultPaymentTerm(terms)
	}

	zap.L().Info("pipeline: account loaded",
		zap.String("account_id", acct.AccountID),
		zap.String("account_slug", acct.AccountSlug),
		zap.String("rate_table_id", acct.RateTableID),
		zap.String("payment_term_id", acct.PaymentTermID),
	)
	return acct, nil
}

// defaultRateTable returns the table flagged default, else the first one.
func defaultRateTable(tables []model.RateTable) string {
	for _, t := range tables {
		if t.Default {
			return t.ID
		}
	}
	if len(tables) > 0 {
		return tables[0].ID
	}
	return ""
}

// defaultPaymentTerm returns the term flagged default, else the first one.
func defaultPaymentTerm(terms []model.PaymentTerm) string {
	for _, t := range terms {
		if t.Default {
			return t.ID
		}
	}
	if len(terms) > 0 {
		return terms[0].ID
	}
	return ""
}
