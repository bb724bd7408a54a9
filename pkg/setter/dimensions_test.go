package setter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseXdpyinfo(t *testing.T) {
	out := `name of display:    :0
screen #0:
  dimensions:    2560x1440 pixels (677x381 millimeters)
  resolution:    96x96 dots per inch`
	w, h, err := parseXdpyinfo(out)
	assert.NoError(t, err)
	assert.Equal(t, 2560, w)
	assert.Equal(t, 1440, h)

	_, _, err = parseXdpyinfo("nothing useful")
	assert.Error(t, err)
}

func TestParseSystemProfiler(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantW   int
		wantH   int
		wantErr bool
	}{
		{
			name: "main display wins",
			input: `{"SPDisplaysDataType":[{"spdisplays_ndrvs":[
				{"_spdisplays_pixels":"1920 x 1080"},
				{"_spdisplays_pixels":"3420 x 2214","spdisplays_main":"spdisplays_yes"}]}]}`,
			wantW: 3420,
			wantH: 2214,
		},
		{
			name:  "first display fallback",
			input: `{"SPDisplaysDataType":[{"spdisplays_ndrvs":[{"_spdisplays_pixels":"2880 x 1800 Retina"}]}]}`,
			wantW: 2880,
			wantH: 1800,
		},
		{name: "no displays", input: `{"SPDisplaysDataType":[]}`, wantErr: true},
		{name: "bad json", input: `{`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, err := parseSystemProfiler([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}
