package tv

import "strconv"

var panelTechnologies = map[byte]string{
	'Q': "QLED",
	'U': "LED",
	'P': "Plasma",
	'L': "LCD",
	'H': "DLP",
	'K': "OLED",
}

// PanelTechnology decodes the first letter of a Samsung model name.
func PanelTechnology(model string) string {
	if model == "" {
		return "Unknown"
	}
	if t, ok := panelTechnologies[model[0]]; ok {
		return t
	}
	return "Unknown"
}

// PanelType decodes the resolution class from a model name such as
// "UE55KS7000" or "QE55Q80T".
func PanelType(model string, year int) string {
	if len(model) > 4 && model[0] == 'Q' && model[4] == 'Q' {
		return "UHD"
	}
	if len(model) < 6 {
		return "Unknown"
	}
	c := model[5]
	if c >= '0' && c <= '9' {
		return "FullHD"
	}
	switch c {
	case 'S':
		if year == 2012 {
			return "Slim"
		}
		return "SUHD"
	case 'U':
		return "UHD"
	case 'P':
		return "Plasma"
	case 'H':
		return "Hybrid"
	}
	return "Unknown"
}

// ScreenSize returns the diagonal in inches encoded in a model name.
func ScreenSize(model string) (int, bool) {
	if len(model) < 4 {
		return 0, false
	}
	n, err := strconv.Atoi(model[2:4])
	if err != nil {
		return 0, false
	}
	return n, true
}
