package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name    string        `validate:"required"`
	URL     string        `validate:"omitempty,url"`
	Count   int           `validate:"min=1,max=3"`
	Delay   time.Duration `validate:"gt=0"`
	Mode    string        `validate:"oneof=fast slow"`
	Minimum float64       `validate:"gt=0"`
	Maximum float64       `validate:"gtfield=Minimum"`
}

func valid() sample {
	return sample{Name: "n", URL: "https://example.com", Count: 2, Delay: time.Second, Mode: "fast", Minimum: 1, Maximum: 2}
}

func TestStruct(t *testing.T) {
	testCases := []struct {
		name        string
		mutate      func(s *sample)
		errContains string
	}{
		{name: "valid", mutate: func(s *sample) {}},
		{name: "missing name", mutate: func(s *sample) { s.Name = "" }, errContains: "sample.Name: field is required"},
		{name: "bad url", mutate: func(s *sample) { s.URL = "not a url" }, errContains: "must be a valid URL"},
		{name: "count too large", mutate: func(s *sample) { s.Count = 9 }, errContains: "must not exceed 3"},
		{name: "zero delay", mutate: func(s *sample) { s.Delay = 0 }, errContains: "must be greater than 0"},
		{name: "unknown mode", mutate: func(s *sample) { s.Mode = "medium" }, errContains: "must be one of [fast slow]"},
		{name: "maximum below minimum", mutate: func(s *sample) { s.Maximum = 0.5 }, errContains: "must be greater than Minimum"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := valid()
			tc.mutate(&s)
			err := Struct(&s)
			if tc.errContains == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errContains)
		})
	}
}

func TestStruct_Nil(t *testing.T) {
	require.Error(t, Struct(nil))
}
