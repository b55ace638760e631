package summary

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/estimate-cli/internal/model"
)

func TestRender_Substitution(t *testing.T) {
	got := Render("Hi {{clientName}}, re {{projectName}}", Data{
		KeyClientName:  "Acme",
		KeyProjectName: "Rollout",
	})
	assert.Equal(t, "Hi Acme, re Rollout", got)
}

func TestRender_AbsentAndUnknownLeftVerbatim(t *testing.T) {
	tmpl := "{{clientName}} {{surveyContext}} {{budget}}"
	got := Render(tmpl, Data{KeyClientName: "Acme"})
	assert.Equal(t, "Acme {{surveyContext}} {{budget}}", got)

	assert.Equal(t, tmpl, Render(tmpl, nil))
}

func TestRender_EveryOccurrence(t *testing.T) {
	got := Render("{{clientName}}/{{clientName}}", Data{KeyClientName: "Acme"})
	assert.Equal(t, "Acme/Acme", got)
}

func TestRender_ValuesNotRescanned(t *testing.T) {
	got := Render("{{clientName}} {{projectName}}", Data{
		KeyClientName:  "{{projectName}}",
		KeyProjectName: "Rollout",
	})
	assert.Equal(t, "{{projectName}} Rollout", got)
}

func TestRender_Idempotent(t *testing.T) {
	data := Data{KeyClientName: "Acme", KeyServiceDescriptions: "Service: Migration"}
	assert.Equal(t, Render(DefaultTemplate, data), Render(DefaultTemplate, data))
}

func TestBuildSurveyContext(t *testing.T) {
	got := BuildSurveyContext([]model.SurveyResponse{
		{QuestionID: "1", Question: "Industry", Answer: "Retail"},
		{QuestionID: "2", Question: "Users", Answer: "250"},
	})
	assert.Equal(t, "QUESTION: Industry\nANSWER: Retail\n\nQUESTION: Users\nANSWER: 250", got)
	assert.Empty(t, BuildSurveyContext(nil))
}

func TestBuildServiceDescriptions_StableOrder(t *testing.T) {
	services := []model.ProjectService{
		{Name: "C", Position: 2, Quantity: 1, TotalHours: 4},
		{Name: "A1", Position: 1, Quantity: 2, TotalHours: 8.5, Description: "First of two. "},
		{Name: "A2", Position: 1, Quantity: 1, TotalHours: 1},
		{Name: "Z", Position: 0, Quantity: 1, TotalHours: 0},
	}
	got := BuildServiceDescriptions(services)

	assert.Equal(t, "Service: Z\nQuantity: 1\nHours: 0"+
		"\n\nService: A1\nQuantity: 2\nHours: 8.5\nDescription: First of two."+
		"\n\nService: A2\nQuantity: 1\nHours: 1"+
		"\n\nService: C\nQuantity: 1\nHours: 4", got)
	assert.Equal(t, "C", services[0].Name, "input slice is not reordered")
}

func TestInputData(t *testing.T) {
	in := Input{
		ClientName:  "Acme",
		ProjectName: "Rollout",
		Responses:   []model.SurveyResponse{{Question: "Industry", Answer: "Retail"}},
		Services:    []model.ProjectService{{Name: "Migration", Quantity: 1, TotalHours: 40}},
	}
	out := Render("{{clientName}}|{{projectName}}|{{surveyContext}}|{{serviceDescriptions}}", in.Data())
	assert.Equal(t, "Acme|Rollout|QUESTION: Industry\nANSWER: Retail|Service: Migration\nQuantity: 1\nHours: 40", out)
}

func TestTemplates(t *testing.T) {
	ctx := context.Background()
	store := &memoryTemplateStore{}
	tpl := NewTemplates(store)

	cur, err := tpl.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultTemplate, cur)

	require.NoError(t, tpl.Save(ctx, "Summarize {{clientName}}"))
	cur, err = tpl.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Summarize {{clientName}}", cur)

	var ve *model.ValidationError
	require.ErrorAs(t, tpl.Save(ctx, "  "), &ve)

	require.NoError(t, tpl.Reset(ctx))
	cur, err = tpl.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultTemplate, cur)
}

func TestTemplates_NilStore(t *testing.T) {
	tpl := NewTemplates(nil)
	cur, err := tpl.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultTemplate, cur)
	assert.NoError(t, tpl.Reset(context.Background()))
	assert.Error(t, tpl.Save(context.Background(), "x"))
}

func TestDefaultTemplate_HasAllPlaceholders(t *testing.T) {
	for _, key := range []string{KeyClientName, KeyProjectName, KeySurveyContext, KeyServiceDescriptions} {
		assert.Contains(t, DefaultTemplate, "{{"+key+"}}")
	}
}
