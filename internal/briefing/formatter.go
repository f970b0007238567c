// Package briefing renders selected items into the digest text handed to notifiers.
package briefing

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"ResearchDigest/internal/domain"
)

const (
	defaultTitle      = "🔬 Research Digest"
	defaultSignOff    = "🤖 Research digest assistant"
	defaultTitleWidth = 70
	insightWidth      = 100
	maxStars          = 5
)

var sectionIcons = map[domain.Category]string{
	domain.CategoryNews:       "📰",
	domain.CategoryGitHub:     "⭐",
	domain.CategoryConference: "🎓",
	domain.CategoryBlog:       "📝",
	domain.CategoryArxiv:      "📚",
}

// Options tune the cosmetic parts of the digest.
type Options struct {
	Title      string
	SignOff    string
	TitleWidth int
	Location   *time.Location
}

// Formatter renders digests.
type Formatter struct {
	opts Options
}

// NewFormatter applies defaults to unset options.
func NewFormatter(opts Options) *Formatter {
	if opts.Title == "" {
		opts.Title = defaultTitle
	}
	if opts.SignOff == "" {
		opts.SignOff = defaultSignOff
	}
	if opts.TitleWidth <= 0 {
		opts.TitleWidth = defaultTitleWidth
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Formatter{opts: opts}
}

// Format produces the digest text. A nil review renders raw scores only.
func (f *Formatter) Format(d domain.Digest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**%s** - %s\n\n", f.opts.Title, d.GeneratedAt.In(f.opts.Location).Format("2006-01-02 15:04"))

	if d.Review != nil {
		if summary := strings.TrimSpace(d.Review.Summary); summary != "" {
			fmt.Fprintf(&b, "%s\n\n", summary)
		}
		if pick, ok := findItem(d.Sections, d.Review.TopPick); ok {
			fmt.Fprintf(&b, "🏆 Top pick: %s\n%s\n\n", f.truncate(pick.Title, f.opts.TitleWidth), pick.Link())
		}
	}

	relevant := 0
	for _, section := range d.Sections {
		if len(section.Items) == 0 {
			continue
		}
		relevant += section.Total

		fmt.Fprintf(&b, "%s **%s**\n", sectionIcon(section.Category), section.Category.Label())
		for i, item := range section.Items {
			f.writeItem(&b, i+1, item, d.Review)
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n")
	fmt.Fprintf(&b, "%d new items in %d categories", d.ItemCount(), nonEmpty(d.Sections))
	if relevant > d.ItemCount() {
		fmt.Fprintf(&b, " (%d relevant, top %d shown)", relevant, d.ItemCount())
	}
	fmt.Fprintf(&b, "\n%s", f.opts.SignOff)

	return b.String()
}

func (f *Formatter) writeItem(b *strings.Builder, n int, item domain.Item, review *domain.Review) {
	title := item.Title
	if item.Category == domain.CategoryConference && item.Source != "" && !strings.Contains(title, item.Source) {
		title = item.Source + ": " + title
	}
	fmt.Fprintf(b, "%d. %s\n", n, f.truncate(title, f.opts.TitleWidth))

	indicator := rawIndicator(item.Score)
	annotation, annotated := review.Annotation(item.ID)
	if annotated {
		indicator = reviewIndicator(annotation, item.Score)
	}

	meta := append([]string{indicator}, attributes(item)...)
	fmt.Fprintf(b, "   %s\n", strings.Join(meta, " | "))

	if detail := item.Attr(domain.AttrDetail); detail != "" {
		fmt.Fprintf(b, "   %s\n", f.truncate(detail, insightWidth))
	}
	if annotated {
		if len(annotation.Tags) > 0 {
			fmt.Fprintf(b, "   Tags: %s\n", strings.Join(annotation.Tags, ", "))
		}
		if annotation.KeyInsight != "" {
			fmt.Fprintf(b, "   💡 %s\n", f.truncate(annotation.KeyInsight, insightWidth))
		}
	}
	fmt.Fprintf(b, "   🔗 %s\n", item.Link())
}

func rawIndicator(score int) string {
	stars := score
	if stars > maxStars {
		stars = maxStars
	}
	return fmt.Sprintf("%s relevance %d", strings.Repeat("⭐", stars), score)
}

func reviewIndicator(a domain.Annotation, raw int) string {
	var icon string
	switch a.Recommendation {
	case domain.RecommendYes:
		icon = "⭐⭐⭐"
	case domain.RecommendNo:
		icon = "○"
	default:
		icon = "⭐"
	}
	parts := []string{icon}
	if a.Score > 0 {
		parts = append(parts, fmt.Sprintf("%d/5", a.Score))
	}
	parts = append(parts, "read: "+string(a.Recommendation), fmt.Sprintf("relevance %d", raw))
	return strings.Join(parts, " ")
}

func attributes(item domain.Item) []string {
	var out []string
	if v := item.Attr(domain.AttrPoints); v != "" {
		out = append(out, "👍 "+v+" points")
	}
	if v := item.Attr(domain.AttrStars); v != "" {
		stars := "★ " + v
		if today := item.Attr(domain.AttrStarsToday); today != "" {
			stars += " (+" + today + " today)"
		}
		out = append(out, stars)
	}
	if v := item.Attr(domain.AttrLanguage); v != "" {
		out = append(out, v)
	}
	if !item.PublishedAt.IsZero() {
		out = append(out, "📅 "+item.PublishedAt.Format("2006-01-02"))
	}
	if v := item.Attr(domain.AttrFeed); v != "" {
		out = append(out, v)
	}
	if len(item.Authors) > 0 {
		authors := item.Authors
		suffix := ""
		if len(authors) > 3 {
			authors, suffix = authors[:3], " et al."
		}
		out = append(out, strings.Join(authors, ", ")+suffix)
	}
	if item.Category == domain.CategoryBlog && item.Source != "" {
		out = append(out, item.Source)
	}
	if v := item.Attr(domain.AttrComments); v != "" {
		out = append(out, "💬 "+v)
	}
	return out
}

func (f *Formatter) truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}

func sectionIcon(c domain.Category) string {
	if icon, ok := sectionIcons[c]; ok {
		return icon
	}
	return "•"
}

func findItem(sections []domain.Section, id string) (domain.Item, bool) {
	if id == "" {
		return domain.Item{}, false
	}
	for _, s := range sections {
		for _, item := range s.Items {
			if item.ID == id {
				return item, true
			}
		}
	}
	return domain.Item{}, false
}

func nonEmpty(sections []domain.Section) int {
	n := 0
	for _, s := range sections {
		if len(s.Items) > 0 {
			n++
		}
	}
	return n
}
