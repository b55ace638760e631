package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/estimate-cli/internal/pipeline"
	"github.com/sells-group/estimate-cli/internal/store"
	"github.com/sells-group/estimate-cli/internal/summary"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Executive summary operations",
}

var summaryRegenerateCmd = &cobra.Command{
	Use:   "regenerate",
	Short: "Generate a fresh executive summary for a project",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("summary"); err != nil {
			return err
		}
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		projectID, _ := cmd.Flags().GetString("project")
		clientName, _ := cmd.Flags().GetString("client")
		req := pipeline.RegenerateRequest{ProjectID: projectID, ClientName: clientName}

		if runID, _ := cmd.Flags().GetString("run"); runID != "" {
			run, err := env.Store.GetRun(cmd.Context(), runID)
			if err != nil {
				return eris.Wrapf(err, "load run %s", runID)
			}
			if run.Result == nil || run.Result.ProjectID == "" {
				return eris.Errorf("run %s has no project", runID)
			}
			req.ProjectID = run.Result.ProjectID
			req.ProjectName = run.Result.ProjectName
			req.Responses = run.Result.Responses
			if req.ClientName == "" {
				req.ClientName = run.Result.ClientName
			}
		}

		text, err := env.Pipeline.Regenerate(cmd.Context(), req)
		if text != "" {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), text)
		}
		return err
	},
}

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Show or edit the executive summary prompt template",
}

func openTemplates(cmd *cobra.Command) (*summary.Templates, func(), error) {
	st, err := initStore(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	return summary.NewTemplates(store.NewSettings(st)), func() { _ = st.Close() }, nil
}

var templateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active template",
	RunE: func(cmd *cobra.Command, _ []string) error {
		templates, closeFn, err := openTemplates(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		tmpl, err := templates.Current(cmd.Context())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), tmpl)
		return err
	},
}

var templateSetCmd = &cobra.Command{
	Use:   "set [file]",
	Short: "Save a template from a file or stdin",
	Long:  "Saves a custom template. Recognized placeholders: {{clientName}}, {{projectName}}, {{surveyContext}}, {{serviceDescriptions}}.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return eris.Wrapf(err, "open %s", args[0])
			}
			defer f.Close() //nolint:errcheck
			r = f
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return eris.Wrap(err, "read template")
		}

		templates, closeFn, err := openTemplates(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		tmpl := strings.TrimRight(string(data), "\n")
		if err := templates.Save(cmd.Context(), tmpl); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Template saved.")
		return nil
	},
}

var templateResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default template",
	RunE: func(cmd *cobra.Command, _ []string) error {
		templates, closeFn, err := openTemplates(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		if err := templates.Reset(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Template reset to default.")
		return nil
	},
}

func init() {
	summaryRegenerateCmd.Flags().String("project", "", "ScopeStack project id")
	summaryRegenerateCmd.Flags().String("client", "", "client name used in the prompt")
	summaryRegenerateCmd.Flags().String("run", "", "take project, client and answers from a recorded run")
	summaryCmd.AddCommand(summaryRegenerateCmd)

	templateCmd.AddCommand(templateShowCmd)
	templateCmd.AddCommand(templateSetCmd)
	templateCmd.AddCommand(templateResetCmd)

	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(templateCmd)
}
