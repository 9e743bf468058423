package recipe

import (
	"encoding/json"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// RecipeTestSuite covers the request draft and the decoded recipe
type RecipeTestSuite struct {
	suite.Suite
	faker *gofakeit.Faker
}

func (suite *RecipeTestSuite) SetupSuite() {
	suite.faker = gofakeit.New(42)
}

func (suite *RecipeTestSuite) TestDraftValidation() {
	suite.Run("DefaultDraft_HasGeneralDiet", func() {
		d := NewDraft()
		assert.Equal(suite.T(), DietGeneral, d.Diet)
		assert.ErrorIs(suite.T(), d.Validate(), ErrEmptyIngredients)
	})

	suite.Run("WhitespaceIngredients_ShouldFail", func() {
		for _, in := range []string{"", " ", "\t\n", "   \r\n  "} {
			d := Draft{Ingredients: in, Diet: DietVegetarian}
			assert.ErrorIs(suite.T(), d.Validate(), ErrEmptyIngredients, "input %q", in)
		}
	})

	suite.Run("RandomIngredients_ShouldPass", func() {
		for i := 0; i < 20; i++ {
			d := Draft{
				Ingredients: suite.faker.Fruit() + ", " + suite.faker.Vegetable(),
				Diet:        Diets()[i%len(Diets())],
			}
			assert.NoError(suite.T(), d.Validate())
		}
	})

	suite.Run("UnknownDiet_ShouldFail", func() {
		d := Draft{Ingredients: "rice", Diet: Diet("carnivore")}
		assert.ErrorIs(suite.T(), d.Validate(), ErrUnknownDiet)
	})
}

func (suite *RecipeTestSuite) TestParseDiet() {
	for _, d := range Diets() {
		parsed, err := ParseDiet(string(d))
		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), d, parsed)
	}

	_, err := ParseDiet("keto")
	assert.ErrorIs(suite.T(), err, ErrUnknownDiet)

	assert.Equal(suite.T(), "High Protein", DietHighProtein.Label())
	assert.Equal(suite.T(), "Weight Loss", DietWeightLoss.Label())
	assert.Equal(suite.T(), "keto", Diet("keto").Label())
}

func (suite *RecipeTestSuite) TestDecode() {
	suite.Run("FullRecipe", func() {
		r, err := Decode([]byte(`{"name":"Tomato Rice","calories":"350 kcal","steps":["Boil rice","Add tomato","Serve"]}`))
		require.NoError(suite.T(), err)

		assert.Equal(suite.T(), "Tomato Rice", r.Name)
		assert.True(suite.T(), r.Calories.Present())
		assert.Equal(suite.T(), "350 kcal", r.Calories.String())
		assert.False(suite.T(), r.Protein.Present())
		assert.Equal(suite.T(), []string{"Boil rice", "Add tomato", "Serve"}, r.Steps)
		assert.True(suite.T(), r.HasSteps())
	})

	suite.Run("NumericFigures", func() {
		r, err := Decode([]byte(`{"name":"Omelette","calories":0,"protein":21.5}`))
		require.NoError(suite.T(), err)

		assert.True(suite.T(), r.Calories.Present(), "numeric zero is shown")
		assert.Equal(suite.T(), "0", r.Calories.String())
		assert.Equal(suite.T(), "21.5", r.Protein.String())
		assert.False(suite.T(), r.HasSteps())
	})

	suite.Run("NullAndEmptyFigures_AreAbsent", func() {
		r, err := Decode([]byte(`{"name":"Salad","calories":null,"protein":""}`))
		require.NoError(suite.T(), err)

		assert.False(suite.T(), r.Calories.Present())
		assert.False(suite.T(), r.Protein.Present())
	})

	suite.Run("InvalidBodies", func() {
		for _, body := range []string{"", "null", "[]", `"recipe"`, "{not json", `{"name":"X","calories":true}`} {
			_, err := Decode([]byte(body))
			assert.Error(suite.T(), err, "body %q", body)
		}
	})

	suite.Run("FigureRoundTrip", func() {
		in := Recipe{Name: "Soup", Calories: NewFigure("120")}
		data, err := json.Marshal(in)
		require.NoError(suite.T(), err)

		out, err := Decode(data)
		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), in, *out)
	})
}

func TestRecipeTestSuite(t *testing.T) {
	suite.Run(t, new(RecipeTestSuite))
}
