package service

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"loginuv_backend/internals/constants"
	machineModel "loginuv_backend/internals/features/machines/machine/model"
)

// fold lowercases and drops combining marks: "Profésor " → "profesor".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

func normalizeRole(raw string) string {
	switch fold(raw) {
	case "admin", "administrator", "administrador":
		return constants.RoleAdmin
	case "teacher", "docente", "profesor":
		return constants.RoleTeacher
	default:
		return constants.RoleStudent
	}
}

// inferOSType: any "win" in hostname or operating system means windows.
func inferOSType(hostname, operatingSystem string) string {
	if strings.Contains(strings.ToLower(hostname+" "+operatingSystem), "win") {
		return machineModel.OSWindows
	}
	return machineModel.OSDebian
}

// parseActive treats a missing flag as active.
func parseActive(raw string) bool {
	v := strings.TrimSpace(raw)
	return v != "0" && !strings.EqualFold(v, "false")
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
