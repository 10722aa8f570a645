package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/pluto/internal/dashboard"
	"github.com/desertthunder/pluto/internal/formatter"
)

var _ list.Item = courseItem{}

// courseItem wraps [dashboard.Card] to implement [list.Item].
type courseItem struct {
	card dashboard.Card
}

func (i courseItem) FilterValue() string { return i.card.Title }
func (i courseItem) Title() string       { return i.card.Title }
func (i courseItem) Description() string {
	desc := fmt.Sprintf("%d/%d videos • %d%%", i.card.CompletedVideos, i.card.TotalVideos, i.card.Percent)
	if i.card.TotalDurationS > 0 {
		desc = fmt.Sprintf("%s • %s", desc, formatter.FormatDuration(i.card.TotalDurationS))
	}
	return desc
}

func courseItems(cards []dashboard.Card) []list.Item {
	items := make([]list.Item, len(cards))
	for i, c := range cards {
		items[i] = courseItem{card: c}
	}
	return items
}
