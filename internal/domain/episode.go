package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kapu/koreanow-go/internal/constants"
)

// Episode is a Culinary Class Wars row (black_white_chef).
type Episode struct {
	ID                  int64     `json:"id"`
	Season              int       `json:"season"`
	Episode             int       `json:"episode"`
	Region              string    `json:"region"`
	RegionName          string    `json:"region_name"`
	RegionDetail        string    `json:"region_detail"`
	RegionDetailName    string    `json:"region_detail_name"`
	RegionDetailNameEng string    `json:"region_detail_name_eng"`
	RelatedChef         string    `json:"related_chef"`
	EpisodeDesc         string    `json:"episode_desc"`
	ImageSrcs           []string  `json:"image_srcs"`
	IsActive            bool      `json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// RegionCode is the English region code for the episode's province.
func (e *Episode) RegionCode() string {
	if code, ok := constants.RegionNameToCode[e.RegionName]; ok {
		return code
	}
	return strings.ToUpper(e.RegionName)
}

// RegionDisplay is the English display name for the episode's province.
func (e *Episode) RegionDisplay() string {
	if name, ok := constants.RegionNameToDisplay[e.RegionName]; ok {
		return name
	}
	return e.RegionName
}

// EpisodeCard is the list representation of an episode.
type EpisodeCard struct {
	ID               int64   `json:"id"`
	Episode          int     `json:"episode"`
	RegionCode       string  `json:"region_code"`
	RegionName       string  `json:"region_name"`
	RegionDetailName string  `json:"region_detail_name"`
	Ingredient       string  `json:"ingredient"`
	Description      string  `json:"description"`
	Chefs            string  `json:"chefs"`
	Thumbnail        *string `json:"thumbnail"`
}

// DedupKey identifies one card per detail region and episode.
func (c *EpisodeCard) DedupKey() string {
	return c.RegionDetailName + "-" + strconv.Itoa(c.Episode)
}

// NewEpisodeCard transforms a stored episode into its card.
func NewEpisodeCard(e *Episode) *EpisodeCard {
	detailName := e.RegionDetailNameEng
	if detailName == "" {
		detailName = e.RegionDetailName
	}

	thumbnail := "/black_white_chef/" + e.RegionDetailNameEng + "/1"

	return &EpisodeCard{
		ID:               e.ID,
		Episode:          e.Episode,
		RegionCode:       e.RegionCode(),
		RegionName:       e.RegionDisplay(),
		RegionDetailName: detailName,
		Ingredient:       ExtractIngredient(e.EpisodeDesc),
		Description:      ShortDescription(e.EpisodeDesc),
		Chefs:            e.RelatedChef,
		Thumbnail:        &thumbnail,
	}
}

var ingredientPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\w+\s+\w+)\s+(match|challenge|battle)`),
	regexp.MustCompile(`(?i)using\s+(\w+\s+\w+)`),
}

// ExtractIngredient pulls the featured ingredient out of an episode
// description ("Jindo green onion match" -> "Green Onion"), falling back to the
// first three words.
func ExtractIngredient(description string) string {
	for _, pattern := range ingredientPatterns {
		if m := pattern.FindStringSubmatch(description); len(m) > 1 && m[1] != "" {
			return titleWords(strings.Split(m[1], " "))
		}
	}

	words := strings.Split(description, " ")
	if len(words) > 3 {
		words = words[:3]
	}
	return titleWords(words)
}

// ShortDescription returns the first sentence, or a truncated prefix when the
// first sentence is too long for a card.
func ShortDescription(description string) string {
	first, _, _ := strings.Cut(description, ".")
	if utf8.RuneCountInString(first) <= constants.StringLimits.ShortCutoff {
		return first + "."
	}
	runes := []rune(description)
	return string(runes[:constants.StringLimits.ShortDescription]) + "..."
}

func titleWords(words []string) string {
	out := make([]string, len(words))
	for i, w := range words {
		if w == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(w)
		out[i] = strings.ToUpper(string(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(out, " ")
}
