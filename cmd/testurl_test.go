package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuessRetailer(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.tesco.com/groceries/en-GB/products/1", "tesco"},
		{"https://groceries.asda.com/product/1", "asda"},
		{"https://www.ocado.com/products/milk-1", "ocado"},
		{"https://www.superdrug.com/make-up/p/1", "superdrug"},
		{"https://shop.unknownstore.example/p/1", "shop"},
		{"://bad url", "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, guessRetailer(tt.url))
		})
	}
}
