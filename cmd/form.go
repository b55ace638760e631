package main

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/rotisserie/eris"

	"github.com/sells-group/estimate-cli/internal/model"
	"github.com/sells-group/estimate-cli/internal/pipeline"
	"github.com/sells-group/estimate-cli/internal/resolver"
)

const (
	newClientOption  = "__new_client__"
	newContactOption = "__new_contact__"
)

// runEstimateForm fills req interactively. Values already present in req
// pre-populate the form.
func runEstimateForm(ctx context.Context, env *appEnv, req *pipeline.Request) error {
	if err := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Project Name").Value(&req.ProjectName).Validate(requiredText("project name")),
		huh.NewInput().Title("MSA Date (YYYY-MM-DD, blank for none)").Placeholder("2025-06-30").Value(&req.MSADate).Validate(validateOptionalDate),
	)).RunWithContext(ctx); err != nil {
		return eris.Wrap(err, "project form")
	}

	contacts, err := chooseClient(ctx, env.Resolver, req)
	if err != nil {
		return err
	}
	if err := editContact(ctx, contacts, req); err != nil {
		return err
	}
	if err := chooseExecutive(ctx, env.Resolver, req); err != nil {
		return err
	}
	return answerQuestionnaire(ctx, env, req)
}

func chooseClient(ctx context.Context, res *resolver.Resolver, req *pipeline.Request) (*resolver.ContactSelection, error) {
	term := req.ClientName
	if err := runField(ctx, huh.NewInput().Title("Client (search or new name)").Value(&term).
		Validate(requiredText("client"))); err != nil {
		return nil, eris.Wrap(err, "client form")
	}

	clients, err := res.SearchClients(ctx, term)
	if err != nil {
		return nil, err
	}
	options := make([]huh.Option[string], 0, len(clients)+1)
	for _, c := range clients {
		options = append(options, huh.NewOption(c.Name, c.ID))
	}
	options = append(options, huh.NewOption("Create new client \""+term+"\"", newClientOption))

	choice := newClientOption
	if len(clients) > 0 {
		if err := runField(ctx, huh.NewSelect[string]().Title("Which client?").Options(options...).Value(&choice)); err != nil {
			return nil, eris.Wrap(err, "client select")
		}
	}

	if choice == newClientOption {
		req.Client = nil
		req.ClientName = strings.TrimSpace(term)
		return resolver.NewContactSelection(), nil
	}
	for i := range clients {
		if clients[i].ID == choice {
			req.Client = &clients[i]
			req.ClientName = clients[i].Name
			return resolver.SelectClient(clients[i]), nil
		}
	}
	return nil, eris.Errorf("client %s not in results", choice)
}

func editContact(ctx context.Context, sel *resolver.ContactSelection, req *pipeline.Request) error {
	if sel.Mode() == resolver.ContactModeAwaitingSelection {
		options := make([]huh.Option[string], 0, len(sel.Options())+1)
		for _, c := range sel.Options() {
			label := c.Name
			if c.Email != "" {
				label += " <" + c.Email + ">"
			}
			options = append(options, huh.NewOption(label, c.ID))
		}
		options = append(options, huh.NewOption("New contact", newContactOption))

		var choice string
		if err := runField(ctx, huh.NewSelect[string]().Title("Which contact?").Options(options...).Value(&choice)); err != nil {
			return eris.Wrap(err, "contact select")
		}
		if choice == newContactOption {
			sel.NewContact()
		} else if err := sel.Choose(choice); err != nil {
			return err
		}
	}

	current, _ := sel.Contact()
	if req.Contact.IsZero() {
		req.Contact = current
	}
	edited := req.Contact
	if err := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Contact Name").Value(&edited.Name),
		huh.NewInput().Title("Contact Email").Value(&edited.Email),
		huh.NewInput().Title("Contact Phone").Value(&edited.Phone),
		huh.NewInput().Title("Contact Title").Value(&edited.Title),
	)).RunWithContext(ctx); err != nil {
		return eris.Wrap(err, "contact form")
	}
	if edited != current {
		sel.Edit(edited)
	}
	req.Contact, _ = sel.Contact()
	return nil
}

func chooseExecutive(ctx context.Context, res *resolver.Resolver, req *pipeline.Request) error {
	if req.SalesExecutiveID != "" {
		return nil
	}
	var term string
	if err := runField(ctx, huh.NewInput().Title("Sales Executive (search)").Value(&term).
		Validate(requiredText("sales executive"))); err != nil {
		return eris.Wrap(err, "executive form")
	}
	execs, err := res.SearchExecutives(ctx, term)
	if err != nil {
		return err
	}
	if len(execs) == 0 {
		return eris.Errorf("no sales executives match %q", term)
	}
	options := make([]huh.Option[string], 0, len(execs))
	for _, e := range execs {
		options = append(options, huh.NewOption(e.Name, e.ID))
	}
	return eris.Wrap(runField(ctx, huh.NewSelect[string]().Title("Which sales executive?").Options(options...).
		Value(&req.SalesExecutiveID)), "executive select")
}

func answerQuestionnaire(ctx context.Context, env *appEnv, req *pipeline.Request) error {
	if req.QuestionnaireID == "" {
		list, err := env.Client.ListQuestionnaires(ctx, cfg.ScopeStack.QuestionnaireTag)
		if err != nil {
			return eris.Wrap(err, "list questionnaires")
		}
		if len(list) == 0 {
			return eris.New("no active questionnaires")
		}
		options := make([]huh.Option[string], 0, len(list))
		for _, q := range list {
			options = append(options, huh.NewOption(q.Name, q.ID))
		}
		if err := runField(ctx, huh.NewSelect[string]().Title("Questionnaire").Options(options...).
			Value(&req.QuestionnaireID)); err != nil {
			return eris.Wrap(err, "questionnaire select")
		}
	}

	q, err := env.Client.GetQuestionnaire(ctx, req.QuestionnaireID)
	if err != nil {
		return eris.Wrapf(err, "get questionnaire %s", req.QuestionnaireID)
	}
	req.Questionnaire = q
	if req.Answers == nil {
		req.Answers = model.Answers{}
	}

	questions := q.ActiveQuestions()
	values := make([]string, len(questions))
	fields := make([]huh.Field, 0, len(questions))
	for i, question := range questions {
		values[i] = req.Answers[question.Slug]
		fields = append(fields, questionField(question, &values[i]))
	}
	if len(fields) > 0 {
		if err := huh.NewForm(huh.NewGroup(fields...)).RunWithContext(ctx); err != nil {
			return eris.Wrap(err, "questionnaire form")
		}
	}
	for i, question := range questions {
		if strings.TrimSpace(values[i]) != "" {
			req.Answers[question.Slug] = values[i]
		}
	}
	return nil
}

func runField(ctx context.Context, f huh.Field) error {
	return huh.NewForm(huh.NewGroup(f)).WithShowHelp(false).RunWithContext(ctx)
}

// questionField renders a question with the input type it declares.
func questionField(q model.Question, value *string) huh.Field {
	title := q.Question
	if q.Required {
		title += " *"
	}
	switch q.InputType() {
	case model.ValueTypeSelect:
		options := make([]huh.Option[string], 0, len(q.SelectOptions)+1)
		if !q.Required {
			options = append(options, huh.NewOption("(none)", ""))
		}
		for _, o := range q.SelectOptions {
			options = append(options, huh.NewOption(o.Key, o.Value))
		}
		return huh.NewSelect[string]().Title(title).Options(options...).Value(value)
	case model.ValueTypeNumber:
		return huh.NewInput().Title(title).Value(value).Validate(validateNumber(q.Required))
	default:
		input := huh.NewInput().Title(title).Value(value)
		if q.Required {
			input = input.Validate(requiredText(q.Slug))
		}
		return input
	}
}

func requiredText(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return eris.Errorf("%s is required", name)
		}
		return nil
	}
}

func validateOptionalDate(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return eris.New("use YYYY-MM-DD")
	}
	return nil
}

func validateNumber(required bool) func(string) error {
	return func(s string) error {
		s = strings.TrimSpace(s)
		if s == "" {
			if required {
				return eris.New("a number is required")
			}
			return nil
		}
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return eris.New("enter a number")
		}
		return nil
	}
}
