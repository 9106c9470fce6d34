package ui

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	ColorSuccess = lipgloss.Color("#00D26A") // green  — connected, success
	ColorWarning = lipgloss.Color("#FFB800") // yellow — degraded, warning
	ColorError   = lipgloss.Color("#FF4444") // red    — unhealthy, error
	ColorAddress = lipgloss.Color("#00B4D8") // cyan   — addresses
	ColorValue   = lipgloss.Color("#FFFFFF") // white bold — values
	ColorMeta    = lipgloss.Color("#555555") // dim gray   — timestamps, metadata
	ColorChain   = lipgloss.Color("#9B5DE5") // purple     — chain and wallet names
	ColorAccent  = lipgloss.Color("#F15BB5") // pink       — headers
)

// Base styles.
var (
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StyleAddress = lipgloss.NewStyle().Foreground(ColorAddress)
	StyleValue   = lipgloss.NewStyle().Foreground(ColorValue).Bold(true)
	StyleMeta    = lipgloss.NewStyle().Foreground(ColorMeta)
	StyleChain   = lipgloss.NewStyle().Foreground(ColorChain).Bold(true)

	StyleHeader = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true).
			Underline(true)

	StyleBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#1E3A5F")).
			Padding(0, 1)
)

// Success formats a success message.
func Success(msg string) string { return StyleSuccess.Render("✓ " + msg) }

// Warn formats a warning message.
func Warn(msg string) string { return StyleWarning.Render("⚠ " + msg) }

// Err formats an error message.
func Err(msg string) string { return StyleError.Render("✗ " + msg) }

// Info formats an informational message.
func Info(msg string) string { return StyleMeta.Render("• " + msg) }

// Addr formats an address.
func Addr(a string) string { return StyleAddress.Render(a) }

// Val formats a value.
func Val(v string) string { return StyleValue.Render(v) }

// Meta formats metadata text.
func Meta(m string) string { return StyleMeta.Render(m) }

// ChainName formats a chain or wallet name.
func ChainName(c string) string { return StyleChain.Render(c) }

// StatusBadge renders a connection or health status with its color:
// green for connected/healthy, yellow for degraded or transitional states,
// red for unhealthy, dim for disconnected.
func StatusBadge(status string) string {
	switch status {
	case "connected", "healthy":
		return StyleSuccess.Render("● " + status)
	case "connecting", "reconnecting", "degraded":
		return StyleWarning.Render("◐ " + status)
	case "unhealthy":
		return StyleError.Render("● " + status)
	default:
		return StyleMeta.Render("○ " + status)
	}
}

// TruncateAddr shortens an address for display: 0x1234…5678.
func TruncateAddr(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
