package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderagent/catalog"
	"orderagent/order"
)

func TestExtract(t *testing.T) {
	ex := New(catalog.Default())

	tests := []struct {
		name string
		text string
		want []order.Line
	}{
		{
			name: "empty text",
			text: "",
			want: []order.Line{},
		},
		{
			name: "whitespace only",
			text: "   \n\t",
			want: []order.Line{},
		},
		{
			name: "no catalog items",
			text: "hello, what time do you close?",
			want: []order.Line{},
		},
		{
			name: "no quantity signal",
			text: "latte please",
			want: []order.Line{{Item: "Latte", Quantity: 1, Price: "RM14.75"}},
		},
		{
			name: "digits and plural",
			text: "2 lattes",
			want: []order.Line{{Item: "Latte", Quantity: 2, Price: "RM29.50"}},
		},
		{
			name: "digits without space",
			text: "I'll take 3croissants",
			want: []order.Line{},
		},
		{
			name: "number words and article",
			text: "two cappuccinos and a croissant",
			want: []order.Line{
				{Item: "Cappuccino", Quantity: 2, Price: "RM29.00"},
				{Item: "Croissant", Quantity: 1, Price: "RM13.25"},
			},
		},
		{
			name: "case insensitive",
			text: "Can I get TWO LATTES",
			want: []order.Line{{Item: "Latte", Quantity: 2, Price: "RM29.50"}},
		},
		{
			name: "longer alias wins over its suffix",
			text: "one chocolate croissant",
			want: []order.Line{{Item: "Chocolate Croissant", Quantity: 1, Price: "RM13.75"}},
		},
		{
			name: "longer and shorter aliases in one message",
			text: "an almond croissant and 2 croissants",
			want: []order.Line{
				{Item: "Almond Croissant", Quantity: 1, Price: "RM14.00"},
				{Item: "Croissant", Quantity: 2, Price: "RM26.50"},
			},
		},
		{
			name: "repeated mentions are summed",
			text: "a latte, then 2 lattes",
			want: []order.Line{{Item: "Latte", Quantity: 3, Price: "RM44.25"}},
		},
		{
			name: "alias inside a word is not a mention",
			text: "I like lattemacchiato and croissantish things",
			want: []order.Line{},
		},
		{
			name: "punctuation is a boundary",
			text: "latte,croissant!",
			want: []order.Line{
				{Item: "Latte", Quantity: 1, Price: "RM14.75"},
				{Item: "Croissant", Quantity: 1, Price: "RM13.25"},
			},
		},
		{
			name: "number word must be a whole word",
			text: "often latte",
			want: []order.Line{{Item: "Latte", Quantity: 1, Price: "RM14.75"}},
		},
		{
			name: "zero quantity adds nothing",
			text: "0 lattes and a roti",
			want: []order.Line{{Item: "ROTI", Quantity: 1, Price: "RM5.50"}},
		},
		{
			name: "extra alias",
			text: "3 shots of espresso and a caramel syrup",
			want: []order.Line{
				{Item: "Espresso shot", Quantity: 1, Price: "RM12.00"},
				{Item: "Carmel syrup", Quantity: 1, Price: "RM11.50"},
			},
		},
		{
			name: "output follows first mention",
			text: "croissant and latte and another croissant",
			want: []order.Line{
				{Item: "Croissant", Quantity: 2, Price: "RM26.50"},
				{Item: "Latte", Quantity: 1, Price: "RM14.75"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ex.Extract(tt.text)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractLongestMatch(t *testing.T) {
	cat, err := catalog.New([]catalog.Entry{
		{Name: "Jumbo Savory Scone", Price: 1325},
		{Name: "Scone", Price: 900, Aliases: []string{"savory scone"}},
	})
	require.NoError(t, err)

	got := New(cat).Extract("jumbo savory scone")

	require.Len(t, got, 1)
	assert.Equal(t, order.Line{Item: "Jumbo Savory Scone", Quantity: 1, Price: "RM13.25"}, got[0])
}

func TestExtractWindow(t *testing.T) {
	cat := catalog.Default()
	text := "12 lattes"

	assert.Equal(t, 12, New(cat).Extract(text)[0].Quantity)
	assert.Equal(t, 2, New(cat, WithWindow(2)).Extract(text)[0].Quantity)
	assert.Equal(t, 1, New(cat, WithWindow(1)).Extract(text)[0].Quantity)
	assert.Equal(t, 12, New(cat, WithWindow(0)).Extract(text)[0].Quantity)
}

func TestExtractQuantityBounds(t *testing.T) {
	ex := New(catalog.Default())

	tests := []struct {
		name string
		text string
		want []order.Line
	}{
		{
			name: "digit run above the cap counts as one",
			text: "999999999999999999 lattes",
			want: []order.Line{{Item: "Latte", Quantity: 1, Price: "RM14.75"}},
		},
		{
			name: "first value above the cap",
			text: "2147483648 lattes",
			want: []order.Line{{Item: "Latte", Quantity: 1, Price: "RM14.75"}},
		},
		{
			name: "oversized mentions are each one",
			text: "6253000000000000 lattes and 6253000000000000 lattes",
			want: []order.Line{{Item: "Latte", Quantity: 2, Price: "RM29.50"}},
		},
		{
			name: "sum saturates at the cap",
			text: "2147483647 lattes and 2147483647 lattes",
			want: []order.Line{{Item: "Latte", Quantity: order.MaxQuantity, Price: "RM31675383793.25"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ex.Extract(tt.text))
		})
	}
}

func TestExtractNoSignalDefaultsToOne(t *testing.T) {
	cat := catalog.Default()
	ex := New(cat)

	for _, a := range cat.Aliases() {
		got := ex.Extract("I want " + a.Surface)
		require.NotEmpty(t, got, a.Surface)
		assert.Equal(t, 1, got[0].Quantity, a.Surface)
	}
}

func TestSpansClaim(t *testing.T) {
	var s spans

	assert.True(t, s.claim(10, 15))
	assert.True(t, s.claim(0, 5))
	assert.True(t, s.claim(5, 10))
	assert.False(t, s.claim(12, 13))
	assert.False(t, s.claim(3, 7))
	assert.False(t, s.claim(14, 20))
	assert.True(t, s.claim(15, 20))

	assert.Equal(t, spans{{0, 5}, {5, 10}, {10, 15}, {15, 20}}, s)
}
