package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/estimate-cli/internal/export"
	"github.com/sells-group/estimate-cli/internal/model"
	"github.com/sells-group/estimate-cli/internal/pipeline"
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Create sales estimates",
}

var estimateCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Run the estimate workflow for one submission",
	Long: `Creates the client (when new), project, project contact and survey, generates the
statement of work, then prints pricing, services and the executive summary.

Input comes from flags, a YAML request file (--file) or an interactive form (--interactive).`,
	Example: `  estimate-cli estimate create --project "Network refresh" --client "Acme" \
    --contact-name "Ann Lee" --sales-exec 42 --questionnaire 7 --answer industry=Retail
  estimate-cli estimate create --file request.yaml --xlsx estimate.xlsx
  estimate-cli estimate create --interactive`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("estimate"); err != nil {
			return err
		}
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		req, err := requestFromFlags(cmd)
		if err != nil {
			return err
		}
		if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
			if err := runEstimateForm(ctx, env, &req); err != nil {
				return err
			}
		}

		acct, err := loadAccount(ctx, env.Client)
		if err != nil {
			return err
		}

		errOut := cmd.ErrOrStderr()
		est, runErr := env.Pipeline.Run(ctx, *acct, req, func(status string) {
			_, _ = fmt.Fprintln(errOut, status)
		})
		if est != nil {
			asJSON, _ := cmd.Flags().GetBool("json")
			if err := writeEstimate(cmd.OutOrStdout(), est, asJSON || !isTerminal(os.Stdout)); err != nil {
				return err
			}
			if path, _ := cmd.Flags().GetString("xlsx"); path != "" && runErr == nil {
				if err := export.WriteFile(path, est); err != nil {
					return err
				}
				zap.L().Info("estimate exported", zap.String("path", path))
			}
		}
		return runErr
	},
}

func init() {
	addRequestFlags(estimateCreateCmd)
	f := estimateCreateCmd.Flags()
	f.Bool("interactive", false, "prompt for missing input")
	f.Bool("json", false, "print the result as JSON")
	f.String("xlsx", "", "also export the estimate to this .xlsx file")

	estimateCmd.AddCommand(estimateCreateCmd)
	rootCmd.AddCommand(estimateCmd)
}

// addRequestFlags registers the flags read by requestFromFlags.
func addRequestFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("file", "", "YAML request file")
	f.String("project", "", "project name")
	f.String("msa-date", "", "MSA date (YYYY-MM-DD)")
	f.String("client", "", "client name (a new client is created)")
	f.String("client-id", "", "existing client id")
	f.String("contact-name", "", "primary contact name")
	f.String("contact-email", "", "primary contact email")
	f.String("contact-phone", "", "primary contact phone")
	f.String("contact-title", "", "primary contact title")
	f.String("sales-exec", "", "sales executive id")
	f.String("questionnaire", "", "questionnaire id")
	f.StringToString("answer", nil, "question answer as slug=value (repeatable)")
	f.String("answers-file", "", "YAML file mapping question slug to answer")
}

// requestFromFlags builds the request from --file and then overlays any
// explicitly set flags.
func requestFromFlags(cmd *cobra.Command) (pipeline.Request, error) {
	var req pipeline.Request
	flags := cmd.Flags()

	if path, _ := flags.GetString("file"); path != "" {
		r, err := readRequestFile(path)
		if err != nil {
			return req, err
		}
		req = *r
	}

	set := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	set("project", &req.ProjectName)
	set("msa-date", &req.MSADate)
	set("client", &req.ClientName)
	set("contact-name", &req.Contact.Name)
	set("contact-email", &req.Contact.Email)
	set("contact-phone", &req.Contact.Phone)
	set("contact-title", &req.Contact.Title)
	set("sales-exec", &req.SalesExecutiveID)
	set("questionnaire", &req.QuestionnaireID)

	if flags.Changed("client-id") {
		id, _ := flags.GetString("client-id")
		req.Client = &model.Client{ID: id, Name: req.ClientName}
	}

	if req.Answers == nil {
		req.Answers = model.Answers{}
	}
	if path, _ := flags.GetString("answers-file"); path != "" {
		answers, err := readAnswersFile(path)
		if err != nil {
			return req, err
		}
		for k, v := range answers {
			req.Answers[k] = v
		}
	}
	if flags.Changed("answer") {
		answers, _ := flags.GetStringToString("answer")
		for k, v := range answers {
			req.Answers[k] = v
		}
	}
	return req, nil
}

func readRequestFile(path string) (*pipeline.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read request file %s", path)
	}
	var req pipeline.Request
	if err := yaml.Unmarshal(data, &req); err != nil {
		return nil, eris.Wrapf(err, "parse request file %s", path)
	}
	return &req, nil
}

func readAnswersFile(path string) (model.Answers, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read answers file %s", path)
	}
	var answers model.Answers
	if err := yaml.Unmarshal(data, &answers); err != nil {
		return nil, eris.Wrapf(err, "parse answers file %s", path)
	}
	return answers, nil
}

// writeEstimate prints est as indented JSON or as styled text.
func writeEstimate(w io.Writer, est *model.Estimate, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(est)
	}
	_, err := io.WriteString(w, renderEstimate(est))
	return err
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
