package pipeline

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sells-group/estimate-cli/internal/model"
)

// Request is one estimate form submission.
type Request struct {
	ProjectName string `json:"project_name" yaml:"project_name" validate:"required"`
	MSADate     string `json:"msa_date,omitempty" yaml:"msa_date" validate:"omitempty,datetime=2006-01-02"`

	// Client is an existing client picked from search. When nil a client
	// named ClientName is created.
	Client     *model.Client `json:"client,omitempty" yaml:"client"`
	ClientName string        `json:"client_name,omitempty" yaml:"client_name" validate:"required_without=Client"`

	Contact model.Contact `json:"contact" yaml:"contact"`

	SalesExecutiveID string `json:"sales_executive_id" yaml:"sales_executive_id" validate:"required"`

	QuestionnaireID string        `json:"questionnaire_id" yaml:"questionnaire_id" validate:"required"`
	Answers         model.Answers `json:"answers" yaml:"answers"`

	// Questionnaire may carry the questions already shown to the user; it
	// is fetched when nil.
	Questionnaire *model.Questionnaire `json:"-" yaml:"-"`
}

// DisplayClientName is the name of the selected or typed client.
func (r Request) DisplayClientName() string {
	if r.Client != nil && r.Client.Name != "" {
		return r.Client.Name
	}
	return strings.TrimSpace(r.ClientName)
}

// Account is the account context every stage is threaded through.
type Account struct {
	AccountID     string `json:"account_id" validate:"required"`
	AccountSlug   string `json:"account_slug" validate:"required"`
	UserName      string `json:"user_name,omitempty"`
	PaymentTermID string `json:"payment_term_id" validate:"required"`
	RateTableID   string `json:"rate_table_id" validate:"required"`
}

type submission struct {
	Account Account
	Request Request
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks acct and req before any remote call. Missing or invalid
// fields are reported together as a *model.ValidationError.
func Validate(acct Account, req Request) error {
	err := validate.Struct(submission{Account: acct, Request: req})
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	fields := make([]string, 0, len(ve))
	for _, fe := range ve {
		fields = append(fields, fe.Field())
	}
	return &model.ValidationError{Fields: fields}
}
