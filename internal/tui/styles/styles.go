package styles

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	PrimaryFire   = lipgloss.Color("#FF6B35")
	SecondaryFire = lipgloss.Color("#F7931E")
	DarkFlame     = lipgloss.Color("#C5351F")
	LightFlame    = lipgloss.Color("#FFE66D")
	EmberGlow     = lipgloss.Color("#FF9F1C")
	DimGray       = lipgloss.Color("#6B7280")
	LightGray     = lipgloss.Color("#9CA3AF")
	White         = lipgloss.Color("#F9FAFB")
	Green         = lipgloss.Color("#10B981")
	Red           = lipgloss.Color("#EF4444")
)

// Theme is a set of accent colors for the loading screen
type Theme struct {
	Name          string
	Accent        lipgloss.Color
	GradientStart lipgloss.Color
	GradientEnd   lipgloss.Color
}

// Themes available through the ui.theme setting
var Themes = map[string]Theme{
	"ember": {Name: "ember", Accent: PrimaryFire, GradientStart: DarkFlame, GradientEnd: LightFlame},
	"blaze": {Name: "blaze", Accent: SecondaryFire, GradientStart: PrimaryFire, GradientEnd: EmberGlow},
	"ash":   {Name: "ash", Accent: LightGray, GradientStart: DimGray, GradientEnd: White},
}

// Current is the active theme
var Current = Themes["ember"]

// Text styles
var (
	TitleStyle    lipgloss.Style
	SubtitleStyle lipgloss.Style
	DimStyle      lipgloss.Style
	AccentStyle   lipgloss.Style
	ErrorStyle    lipgloss.Style
	SuccessStyle  lipgloss.Style
	WarningStyle  lipgloss.Style
	SpinnerStyle  lipgloss.Style
	PanelStyle    lipgloss.Style
)

func init() {
	build()
}

// SetTheme switches the active theme. Unknown names leave it unchanged.
func SetTheme(name string) bool {
	t, ok := Themes[name]
	if !ok {
		return false
	}
	Current = t
	build()
	return true
}

func build() {
	TitleStyle = lipgloss.NewStyle().
		Foreground(Current.Accent).
		Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
		Foreground(LightGray)

	DimStyle = lipgloss.NewStyle().
		Foreground(DimGray)

	AccentStyle = lipgloss.NewStyle().
		Foreground(Current.Accent)

	ErrorStyle = lipgloss.NewStyle().
		Foreground(Red)

	SuccessStyle = lipgloss.NewStyle().
		Foreground(Green).
		Bold(true)

	WarningStyle = lipgloss.NewStyle().
		Foreground(EmberGlow).
		Bold(true)

	SpinnerStyle = lipgloss.NewStyle().
		Foreground(Current.Accent)

	PanelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Current.Accent).
		Padding(1, 4)
}

// Truncate truncates a string to the given width with ellipsis
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 3 {
		return string(r[:width])
	}
	return string(r[:width-3]) + "..."
}
