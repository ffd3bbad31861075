package domain

import "strings"

type StatusMeta struct {
	Label  string `json:"label"`
	Dot    string `json:"dot"`
	Bg     string `json:"bg"`
	Border string `json:"border"`
	Text   string `json:"text"`
}

var (
	blueStatus  = StatusMeta{Dot: "#60a5fa", Bg: "rgba(59,130,246,0.22)", Border: "rgba(59,130,246,0.5)", Text: "#dbeafe"}
	greenStatus = StatusMeta{Dot: "#34d399", Bg: "rgba(16,185,129,0.22)", Border: "rgba(16,185,129,0.5)", Text: "#d1fae5"}
)

func withLabel(m StatusMeta, label string) StatusMeta {
	m.Label = label
	return m
}

// StatusTable is keyed by the lower-case status value stored on bookings.
var StatusTable = map[string]StatusMeta{
	"planned":   withLabel(blueStatus, "Запланировано"),
	"confirmed": withLabel(greenStatus, "Подтверждено"),
	"arrived":   withLabel(greenStatus, "Прибыли"),
	"completed": {Label: "Завершено", Dot: "#a1a1aa", Bg: "rgba(113,113,122,0.22)", Border: "rgba(113,113,122,0.5)", Text: "#e4e4e7"},
	"cancelled": {Label: "Отменено", Dot: "#f87171", Bg: "rgba(239,68,68,0.22)", Border: "rgba(239,68,68,0.5)", Text: "#fee2e2"},
	"new":       {Label: "Новая", Dot: "#fbbf24", Bg: "rgba(234,179,8,0.2)", Border: "rgba(234,179,8,0.45)", Text: "#fef3c7"},
}

var DefaultStatusMeta = StatusMeta{Label: "Неизвестно", Dot: "#94a3b8", Bg: "rgba(148,163,184,0.2)", Border: "rgba(148,163,184,0.45)", Text: "#e2e8f0"}

func LookupStatus(status string) StatusMeta {
	if m, ok := StatusTable[strings.ToLower(strings.TrimSpace(status))]; ok {
		return m
	}
	return DefaultStatusMeta
}
