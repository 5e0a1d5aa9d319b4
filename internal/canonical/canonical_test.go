package canonical

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbncursed/vkr/intent-gate/internal/models"
)

func book(item string, price float64) models.ActionDescriptor {
	return models.ActionDescriptor{
		Name: "book",
		Params: []models.Param{
			{Name: "item", Value: models.String(item)},
			{Name: "price", Value: models.Number(price)},
		},
	}
}

func TestBuildGolden(t *testing.T) {
	got, err := Build(book("FL123", 450))
	require.NoError(t, err)
	assert.Equal(t, "16:intent-action/v1,4:book,4:item,1:s,5:FL123,5:price,1:n,3:450,", string(got))
}

func TestBuildParamOrderIndependent(t *testing.T) {
	a := book("FL123", 450)
	b := models.ActionDescriptor{Name: " BOOK ", Params: []models.Param{a.Params[1], a.Params[0]}}

	ba, err := Build(a)
	require.NoError(t, err)
	bb, err := Build(b)
	require.NoError(t, err)
	assert.Equal(t, ba, bb)
}

func TestBuildNumberFormatting(t *testing.T) {
	// 100 and 100.0 are the same number.
	x, err := Build(book("FL1", 100))
	require.NoError(t, err)
	y, err := Build(book("FL1", 100.0))
	require.NoError(t, err)
	assert.Equal(t, x, y)

	negZero, err := Build(book("FL1", math.Copysign(0, -1)))
	require.NoError(t, err)
	zero, err := Build(book("FL1", 0))
	require.NoError(t, err)
	assert.Equal(t, zero, negZero)

	frac, err := Build(book("FL1", 450.5))
	require.NoError(t, err)
	assert.Contains(t, string(frac), "5:450.5,")

	big, err := Build(book("FL1", 1e21))
	require.NoError(t, err)
	assert.NotContains(t, string(big), "e+")
}

func TestBuildTypeTagged(t *testing.T) {
	num, err := Build(models.ActionDescriptor{Name: "book", Params: []models.Param{{Name: "price", Value: models.Number(100)}}})
	require.NoError(t, err)
	str, err := Build(models.ActionDescriptor{Name: "book", Params: []models.Param{{Name: "price", Value: models.String("100")}}})
	require.NoError(t, err)
	assert.NotEqual(t, num, str)
}

func TestBuildDelimiterSafe(t *testing.T) {
	// A value smuggling delimiters must not collide with a two-param layout.
	a, err := Build(models.ActionDescriptor{Name: "book", Params: []models.Param{
		{Name: "item", Value: models.String("FL1:price=1")},
	}})
	require.NoError(t, err)
	b, err := Build(models.ActionDescriptor{Name: "book", Params: []models.Param{
		{Name: "item", Value: models.String("FL1")},
		{Name: "price", Value: models.Number(1)},
	}})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestBuildNFC(t *testing.T) {
	composed, err := Build(models.ActionDescriptor{Name: "book", Params: []models.Param{{Name: "city", Value: models.String("Z\u00fcrich")}}})
	require.NoError(t, err)
	decomposed, err := Build(models.ActionDescriptor{Name: "book", Params: []models.Param{{Name: "city", Value: models.String("Zu\u0308rich")}}})
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)
}

func TestBuildRejects(t *testing.T) {
	cases := []struct {
		name   string
		action models.ActionDescriptor
		want   error
	}{
		{"empty name", models.ActionDescriptor{Name: "  "}, ErrEmptyName},
		{"empty param", models.ActionDescriptor{Name: "a", Params: []models.Param{{Name: "", Value: models.String("x")}}}, ErrEmptyParamName},
		{"duplicate", models.ActionDescriptor{Name: "a", Params: []models.Param{
			{Name: "p", Value: models.Number(1)}, {Name: "p", Value: models.Number(2)},
		}}, ErrDuplicateParam},
		{"nan", models.ActionDescriptor{Name: "a", Params: []models.Param{{Name: "p", Value: models.Number(math.NaN())}}}, ErrBadNumber},
		{"inf", models.ActionDescriptor{Name: "a", Params: []models.Param{{Name: "p", Value: models.Number(math.Inf(1))}}}, ErrBadNumber},
		{"zero kind", models.ActionDescriptor{Name: "a", Params: []models.Param{{Name: "p"}}}, ErrBadKind},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Build(tc.action)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestIdentityDistinguishesFields(t *testing.T) {
	a := Identity(models.IdentityContext{UserID: "ab", AgentID: "c"})
	b := Identity(models.IdentityContext{UserID: "a", AgentID: "bc"})
	assert.NotEqual(t, a, b)
	assert.Equal(t, Identity(models.IdentityContext{}), Identity(models.IdentityContext{}))
}

func TestPlanHash(t *testing.T) {
	plan := models.IntentPlan{Goal: "fly", Steps: []models.PlanStep{{Tool: "travel", Action: book("FL123", 450)}}}
	h1, err := PlanHash(plan)
	require.NoError(t, err)
	assert.Len(t, h1, 64)

	plan.Goal = "different goal"
	h2, err := PlanHash(plan)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	plan.Steps[0].Action = book("FL123", 451)
	h3, err := PlanHash(plan)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestDigestKeyOrderIndependent(t *testing.T) {
	a, err := Digest(map[string]any{"b": 1, "a": "x"})
	require.NoError(t, err)
	b, err := Digest(struct {
		A string `json:"a"`
		B int    `json:"b"`
	}{"x", 1})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBuildDeterministicProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("build ignores parameter order", prop.ForAll(
		func(names []string, values []float64) bool {
			seen := map[string]bool{}
			var params []models.Param
			for i := 0; i < len(names) && i < len(values); i++ {
				if seen[names[i]] {
					continue
				}
				seen[names[i]] = true
				params = append(params, models.Param{Name: names[i], Value: models.Number(values[i])})
			}
			reversed := make([]models.Param, len(params))
			for i, p := range params {
				reversed[len(params)-1-i] = p
			}
			x, err1 := Build(models.ActionDescriptor{Name: "act", Params: params})
			y, err2 := Build(models.ActionDescriptor{Name: "act", Params: reversed})
			return err1 == nil && err2 == nil && string(x) == string(y)
		},
		gen.SliceOf(gen.Identifier()),
		gen.SliceOf(gen.Float64Range(-1e9, 1e9)),
	))

	properties.TestingRun(t)
}
