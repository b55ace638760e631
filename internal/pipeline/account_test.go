package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/estimate-cli/internal/model"
)

func TestLoadAccount_Defaults(t *testing.T) {
	ss := &mockScopeStack{}
	ss.On("Me", mock.Anything).Return(&model.Account{AccountID: "1", AccountSlug: "acme", UserName: "Sam"}, nil)
	ss.On("ListRateTables", mock.Anything).Return([]model.RateTable{{ID: "rt-1"}, {ID: "rt-2", Default: true}}, nil)
	ss.On("ListPaymentTerms", mock.Anything).Return([]model.PaymentTerm{{ID: "pt-1"}}, nil)

	acct, err := LoadAccount(context.Background(), ss, AccountDefaults{})
	require.NoError(t, err)
	assert.Equal(t, &Account{
		AccountID:     "1",
		AccountSlug:   "acme",
		UserName:      "Sam",
		PaymentTermID: "pt-1",
		RateTableID:   "rt-2",
	}, acct)
}

func TestLoadAccount_Overrides(t *testing.T) {
	ss := &mockScopeStack{}
	ss.On("Me", mock.Anything).Return(&model.Account{AccountID: "1", AccountSlug: "acme"}, nil)

	acct, err := LoadAccount(context.Background(), ss, AccountDefaults{PaymentTermID: "pt-9", RateTableID: "rt-9"})
	require.NoError(t, err)
	assert.Equal(t, "pt-9", acct.PaymentTermID)
	assert.Equal(t, "rt-9", acct.RateTableID)
	ss.AssertNotCalled(t, "ListRateTables", mock.Anything)
	ss.AssertNotCalled(t, "ListPaymentTerms", mock.Anything)
}

func TestLoadAccount_Error(t *testing.T) {
	ss := &mockScopeStack{}
	ss.On("Me", mock.Anything).Return(nil, errors.New("401"))

	_, err := LoadAccount(context.Background(), ss, AccountDefaults{PaymentTermID: "pt", RateTableID: "rt"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline: load account")
}

func TestLoadAccount_NoTables(t *testing.T) {
	ss := &mockScopeStack{}
	ss.On("Me", mock.Anything).Return(&model.Account{AccountID: "1", AccountSlug: "acme"}, nil)
	ss.On("ListRateTables", mock.Anything).Return([]model.RateTable{}, nil)
	ss.On("ListPaymentTerms", mock.Anything).Return([]model.PaymentTerm{}, nil)

	acct, err := LoadAccount(context.Background(), ss, AccountDefaults{})
	require.NoError(t, err)

	var ve *model.ValidationError
	require.ErrorAs(t, Validate(*acct, testRequest()), &ve)
	assert.ElementsMatch(t, []string{"payment_term_id", "rate_table_id"}, ve.Fields)
}
