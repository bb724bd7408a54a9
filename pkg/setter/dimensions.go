package setter

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// resolutionRegex matches "3456 x 2234", "2880 x 1864 Retina" or "1920x1080".
var resolutionRegex = regexp.MustCompile(`(\d+)\s*x\s*(\d+)`)

// parseXdpyinfo extracts the root window size from xdpyinfo output, e.g.
// "  dimensions:    1920x1080 pixels (508x285 millimeters)".
func parseXdpyinfo(out string) (int, int, error) {
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "dimensions:") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) >= 2 {
			return parseResolution(parts[1])
		}
	}
	return 0, 0, fmt.Errorf("failed to parse screen resolution")
}

type systemProfilerOutput struct {
	Displays []struct {
		NDRVs []struct {
			Resolution string `json:"_spdisplays_pixels"`
			Main       string `json:"spdisplays_main"`
		} `json:"spdisplays_ndrvs"`
	} `json:"SPDisplaysDataType"`
}

// parseSystemProfiler reads the main display size from `system_profiler SPDisplaysDataType -json`.
func parseSystemProfiler(data []byte) (int, int, error) {
	var profiler systemProfilerOutput
	if err := json.Unmarshal(data, &profiler); err != nil {
		return 0, 0, fmt.Errorf("decoding system_profiler JSON: %w", err)
	}

	for _, gpu := range profiler.Displays {
		for _, display := range gpu.NDRVs {
			if display.Main == "spdisplays_yes" {
				return parseResolution(display.Resolution)
			}
		}
	}

	// No main display flagged, use the first one
	if len(profiler.Displays) > 0 && len(profiler.Displays[0].NDRVs) > 0 {
		return parseResolution(profiler.Displays[0].NDRVs[0].Resolution)
	}

	return 0, 0, fmt.Errorf("no displays found in system_profiler output")
}

func parseResolution(s string) (int, int, error) {
	matches := resolutionRegex.FindStringSubmatch(s)
	if len(matches) < 3 {
		return 0, 0, fmt.Errorf("failed to parse resolution from string: %s", s)
	}
	width, errW := strconv.Atoi(matches[1])
	height, errH := strconv.Atoi(matches[2])
	if errW != nil || errH != nil {
		return 0, 0, fmt.Errorf("failed to convert dimensions: %v, %v", errW, errH)
	}
	return width, height, nil
}
