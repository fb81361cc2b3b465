package content

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/kapu/koreanow-go/internal/constants"
	"github.com/kapu/koreanow-go/internal/domain"
)

// GlossaryRow is one glossary column together with the URL it is attributed to.
type GlossaryRow struct {
	SourceURL string
	Glossary  domain.GlossaryJSON
}

// Querier is the read surface of the content tables.
type Querier interface {
	ListEditorials(ctx context.Context, limit int) ([]*domain.Editorial, error)
	GetEditorial(ctx context.Context, id string) (*domain.Editorial, error)
	GetEditorialByURL(ctx context.Context, site, url string) (*domain.Editorial, error)
	GetEditorialContent(ctx context.Context, site, url string) (*domain.EditorialContent, error)

	ListRestaurants(ctx context.Context, filter domain.RestaurantFilter) ([]*domain.Restaurant, error)
	GetRestaurant(ctx context.Context, id int64) (*domain.Restaurant, error)
	RestaurantsInRegion(ctx context.Context, region string) ([]*domain.Restaurant, error)
	GetRestaurantDetail(ctx context.Context, url string) (*domain.RestaurantDetail, error)
	GetRestaurantDetailRaw(ctx context.Context, url string) (*domain.RestaurantDetailRaw, error)
	RegionDetails(ctx context.Context, region string) ([]string, error)
	RegionCodes(ctx context.Context) ([]string, error)

	ListEpisodes(ctx context.Context) ([]*domain.Episode, error)
	GetEpisode(ctx context.Context, id int64) (*domain.Episode, error)

	GlossaryRows(ctx context.Context, source domain.GlossarySourceType) ([]GlossaryRow, error)
}

// Repository reads content from Postgres. Lookups of a single row return
// nil, nil when the row does not exist.
type Repository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewRepository(db *sql.DB, logger *zap.Logger) *Repository {
	return &Repository{db: db, logger: logger}
}

type rowScanner interface {
	Scan(dest ...any) error
}

const editorialColumns = `
	t.id, t.site, t.url, t.lang, t.title_translated,
	COALESCE(t.summary_translated, ''), COALESCE(t.summary_short, ''),
	t.summary_bullets, t.glossary, COALESCE(t.image_url, ''),
	COALESCE(p.image_url, ''), t.created_at, t.updated_at`

const editorialFrom = `
	FROM food_editorial_posts_translations t
	LEFT JOIN LATERAL (
		SELECT image_url FROM food_editorial_posts
		WHERE url = t.url AND image_url IS NOT NULL
		LIMIT 1
	) p ON true`

func scanEditorial(row rowScanner) (*domain.Editorial, error) {
	var (
		e         domain.Editorial
		updatedAt sql.NullTime
	)
	err := row.Scan(
		&e.ID, &e.Site, &e.URL, &e.Lang, &e.TitleTranslated,
		&e.SummaryTranslated, &e.SummaryShort,
		pq.Array(&e.SummaryBullets), &e.Glossary, &e.ImageURL,
		&e.OriginalImageURL, &e.CreatedAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if updatedAt.Valid {
		e.UpdatedAt = &updatedAt.Time
	}
	return &e, nil
}

func (r *Repository) ListEditorials(ctx context.Context, limit int) ([]*domain.Editorial, error) {
	query := `SELECT` + editorialColumns + editorialFrom + `
		WHERE t.lang = $1
		ORDER BY t.created_at DESC
		LIMIT NULLIF($2, 0)`

	rows, err := r.db.QueryContext(ctx, query, constants.ContentLang, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query editorials: %w", err)
	}
	defer rows.Close()

	editorials := make([]*domain.Editorial, 0)
	for rows.Next() {
		e, err := scanEditorial(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan editorial: %w", err)
		}
		editorials = append(editorials, e)
	}
	return editorials, rows.Err()
}

func (r *Repository) GetEditorial(ctx context.Context, id string) (*domain.Editorial, error) {
	query := `SELECT` + editorialColumns + editorialFrom + `
		WHERE t.id::text = $1 AND t.lang = $2
		LIMIT 1`

	e, err := scanEditorial(r.db.QueryRowContext(ctx, query, id, constants.ContentLang))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get editorial %s: %w", id, err)
	}
	return e, nil
}

func (r *Repository) GetEditorialByURL(ctx context.Context, site, url string) (*domain.Editorial, error) {
	query := `SELECT` + editorialColumns + editorialFrom + `
		WHERE t.site = $1 AND t.url = $2 AND t.lang = $3
		LIMIT 1`

	e, err := scanEditorial(r.db.QueryRowContext(ctx, query, site, url, constants.ContentLang))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get editorial by url: %w", err)
	}
	return e, nil
}

func (r *Repository) GetEditorialContent(ctx context.Context, site, url string) (*domain.EditorialContent, error) {
	query := `
		SELECT c.id, c.site, c.url, c.lang, COALESCE(c.content_translated, ''),
			COALESCE(c.content_summary, ''), c.content_bullets, c.glossary,
			COALESCE(src.images, '{}'), c.created_at
		FROM food_editorial_post_content_translations c
		LEFT JOIN LATERAL (
			SELECT images FROM food_editorial_post_content
			WHERE site = c.site AND url = c.url
			LIMIT 1
		) src ON true
		WHERE c.site = $1 AND c.url = $2 AND c.lang = $3
		LIMIT 1`

	var c domain.EditorialContent
	err := r.db.QueryRowContext(ctx, query, site, url, constants.ContentLang).Scan(
		&c.ID, &c.Site, &c.URL, &c.Lang, &c.ContentTranslated,
		&c.ContentSummary, pq.Array(&c.ContentBullets), &c.Glossary,
		pq.Array(&c.Images), &c.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get editorial content: %w", err)
	}
	return &c, nil
}

const restaurantColumns = `
	l.id, COALESCE(l.restaurant_id::text, ''), COALESCE(l.url, ''), l.lang, l.name,
	COALESCE(l.summary_short, ''), l.summary_bullets, COALESCE(l.region_name, ''),
	COALESCE(l.region_detail, ''), COALESCE(l.region_detail_name, ''),
	COALESCE(l.short_description, ''), COALESCE(l.address, ''), COALESCE(l.menu, ''),
	l.glossary, COALESCE(l.image_url, ''), COALESCE(p.image_url, ''), COALESCE(p.url, ''),
	l.created_at`

func scanRestaurant(row rowScanner) (*domain.Restaurant, error) {
	var rest domain.Restaurant
	err := row.Scan(
		&rest.ID, &rest.RestaurantID, &rest.URL, &rest.Lang, &rest.Name,
		&rest.SummaryShort, pq.Array(&rest.SummaryBullets), &rest.RegionName,
		&rest.RegionDetail, &rest.RegionDetailName,
		&rest.ShortDescription, &rest.Address, &rest.Menu,
		&rest.Glossary, &rest.ImageURL, &rest.OriginalImageURL, &rest.OriginalURL,
		&rest.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rest, nil
}

func (r *Repository) queryRestaurants(ctx context.Context, query string, args ...any) ([]*domain.Restaurant, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query restaurants: %w", err)
	}
	defer rows.Close()

	restaurants := make([]*domain.Restaurant, 0)
	for rows.Next() {
		rest, err := scanRestaurant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan restaurant: %w", err)
		}
		restaurants = append(restaurants, rest)
	}
	return restaurants, rows.Err()
}

func (r *Repository) ListRestaurants(ctx context.Context, filter domain.RestaurantFilter) ([]*domain.Restaurant, error) {
	query, args := buildRestaurantListQuery(filter)

	restaurants, err := r.queryRestaurants(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	if err := r.attachCategories(ctx, restaurants); err != nil {
		r.logger.Warn("Failed to load restaurant categories", zap.Error(err))
	}
	return restaurants, nil
}

// attachCategories fills CategoryTranslated with one batch query.
func (r *Repository) attachCategories(ctx context.Context, restaurants []*domain.Restaurant) error {
	urls := make([]string, 0, len(restaurants))
	for _, rest := range restaurants {
		if rest.OriginalURL != "" {
			urls = append(urls, rest.OriginalURL)
		}
	}
	if len(urls) == 0 {
		return nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT url, category_translated
		FROM popular_restaurants_detail_translations
		WHERE url = ANY($1) AND lang = $2 AND category_translated IS NOT NULL`,
		pq.Array(urls), constants.ContentLang,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	categories := make(map[string]string, len(urls))
	for rows.Next() {
		var url, category string
		if err := rows.Scan(&url, &category); err != nil {
			return err
		}
		if category != "" {
			categories[url] = category
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, rest := range restaurants {
		rest.CategoryTranslated = categories[rest.OriginalURL]
	}
	return nil
}

func (r *Repository) GetRestaurant(ctx context.Context, id int64) (*domain.Restaurant, error) {
	query := `SELECT` + restaurantColumns + `
		FROM popular_restaurants_localizations l
		LEFT JOIN popular_restaurants p ON p.id = l.restaurant_id
		WHERE l.id = $1 AND l.lang = $2
		LIMIT 1`

	rest, err := scanRestaurant(r.db.QueryRowContext(ctx, query, id, constants.ContentLang))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get restaurant %d: %w", id, err)
	}
	return rest, nil
}

func (r *Repository) RestaurantsInRegion(ctx context.Context, region string) ([]*domain.Restaurant, error) {
	query := `SELECT` + restaurantColumns + `
		FROM popular_restaurants_localizations l
		JOIN popular_restaurants p ON p.id = l.restaurant_id
		WHERE l.lang = $1 AND l.region_name ILIKE $2`

	return r.queryRestaurants(ctx, query, constants.ContentLang, likePrefix(region))
}

func (r *Repository) GetRestaurantDetail(ctx context.Context, url string) (*domain.RestaurantDetail, error) {
	var (
		d        domain.RestaurantDetail
		lat, lng sql.NullFloat64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(site, ''), url, lang,
			COALESCE(name_translated, ''), COALESCE(category_translated, ''),
			COALESCE(description_translated, ''), COALESCE(address_translated, ''),
			COALESCE(operating_hours_translated, ''), COALESCE(menus_translated, ''),
			COALESCE(facilities_translated, ''), COALESCE(content_translated, ''),
			COALESCE(menu_translated, ''), COALESCE(tips_translated, ''),
			COALESCE(summary_short, ''), summary_bullets, glossary, geo_w, geo_g
		FROM popular_restaurants_detail_translations
		WHERE url = $1 AND lang = $2
		LIMIT 1`, url, constants.ContentLang,
	).Scan(
		&d.ID, &d.Site, &d.URL, &d.Lang,
		&d.NameTranslated, &d.CategoryTranslated,
		&d.DescriptionTranslated, &d.AddressTranslated,
		&d.OperatingHoursTranslated, &d.MenusTranslated,
		&d.FacilitiesTranslated, &d.ContentTranslated,
		&d.MenuTranslated, &d.TipsTranslated,
		&d.SummaryShort, pq.Array(&d.SummaryBullets), &d.Glossary, &lat, &lng,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get restaurant detail: %w", err)
	}
	if lat.Valid && lng.Valid {
		d.Latitude, d.Longitude = &lat.Float64, &lng.Float64
	}
	return &d, nil
}

func (r *Repository) GetRestaurantDetailRaw(ctx context.Context, url string) (*domain.RestaurantDetailRaw, error) {
	var (
		d           domain.RestaurantDetailRaw
		rating      sql.NullFloat64
		ratingCount sql.NullInt64
		menus       []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(site, ''), url, COALESCE(name, ''), COALESCE(category, ''),
			COALESCE(phone, ''), COALESCE(website, ''), COALESCE(operating_hours, ''),
			rating, rating_count, image_urls, menus
		FROM popular_restaurants_detail
		WHERE url = $1
		LIMIT 1`, url,
	).Scan(
		&d.ID, &d.Site, &d.URL, &d.Name, &d.Category,
		&d.Phone, &d.Website, &d.OperatingHours,
		&rating, &ratingCount, pq.Array(&d.ImageURLs), &menus,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get raw restaurant detail: %w", err)
	}
	if rating.Valid {
		d.Rating = &rating.Float64
	}
	if ratingCount.Valid {
		count := int(ratingCount.Int64)
		d.RatingCount = &count
	}
	d.Menus = menus
	return &d, nil
}

func (r *Repository) RegionDetails(ctx context.Context, region string) ([]string, error) {
	clause, args := regionClause(region, 2)
	if clause == "" {
		return []string{}, nil
	}

	query := `
		SELECT DISTINCT l.region_detail_name
		FROM popular_restaurants_localizations l
		WHERE l.lang = $1 AND l.region_detail_name IS NOT NULL AND l.region_detail_name <> ''
		AND ` + clause

	rows, err := r.db.QueryContext(ctx, query, append([]any{constants.ContentLang}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query region details: %w", err)
	}
	defer rows.Close()

	return scanStrings(rows)
}

func (r *Repository) RegionCodes(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT upper(substring(region_name FROM '^[^ ]+'))
		FROM popular_restaurants_localizations
		WHERE lang = $1 AND region_name IS NOT NULL AND region_name <> ''`,
		constants.ContentLang,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query region codes: %w", err)
	}
	defer rows.Close()

	return scanStrings(rows)
}

const episodeColumns = `
	id, season, episode, COALESCE(region, ''), COALESCE(region_name, ''),
	COALESCE(region_detail, ''), COALESCE(region_detail_name, ''),
	COALESCE(region_detail_name_eng, ''), COALESCE(related_chef, ''),
	COALESCE(episode_desc, ''), image_srcs, is_active, created_at,
	COALESCE(updated_at, created_at)`

func scanEpisode(row rowScanner) (*domain.Episode, error) {
	var e domain.Episode
	err := row.Scan(
		&e.ID, &e.Season, &e.Episode, &e.Region, &e.RegionName,
		&e.RegionDetail, &e.RegionDetailName,
		&e.RegionDetailNameEng, &e.RelatedChef,
		&e.EpisodeDesc, pq.Array(&e.ImageSrcs), &e.IsActive, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repository) ListEpisodes(ctx context.Context) ([]*domain.Episode, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT`+episodeColumns+`
		FROM black_white_chef
		WHERE is_active = true
		ORDER BY episode DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query episodes: %w", err)
	}
	defer rows.Close()

	episodes := make([]*domain.Episode, 0)
	for rows.Next() {
		e, err := scanEpisode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan episode: %w", err)
		}
		episodes = append(episodes, e)
	}
	return episodes, rows.Err()
}

func (r *Repository) GetEpisode(ctx context.Context, id int64) (*domain.Episode, error) {
	e, err := scanEpisode(r.db.QueryRowContext(ctx, `SELECT`+episodeColumns+`
		FROM black_white_chef
		WHERE id = $1 AND is_active = true`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get episode %d: %w", id, err)
	}
	return e, nil
}

var glossaryQueries = map[domain.GlossarySourceType]string{
	domain.GlossarySourceEditorial: `
		SELECT url, glossary FROM food_editorial_posts_translations
		WHERE lang = $1 AND glossary IS NOT NULL
		ORDER BY created_at, url`,
	domain.GlossarySourceEditorialContent: `
		SELECT url, glossary FROM food_editorial_post_content_translations
		WHERE lang = $1 AND glossary IS NOT NULL
		ORDER BY created_at, url`,
	domain.GlossarySourceRestaurant: `
		SELECT COALESCE(restaurant_id::text, id::text), glossary FROM popular_restaurants_localizations
		WHERE lang = $1 AND glossary IS NOT NULL
		ORDER BY created_at, id`,
	domain.GlossarySourceRestaurantDetail: `
		SELECT COALESCE(url, ''), glossary FROM popular_restaurants_detail_translations
		WHERE lang = $1 AND glossary IS NOT NULL
		ORDER BY id`,
}

func (r *Repository) GlossaryRows(ctx context.Context, source domain.GlossarySourceType) ([]GlossaryRow, error) {
	query, ok := glossaryQueries[source]
	if !ok {
		return nil, fmt.Errorf("unknown glossary source %q", source)
	}

	rows, err := r.db.QueryContext(ctx, query, constants.ContentLang)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s glossaries: %w", source, err)
	}
	defer rows.Close()

	result := make([]GlossaryRow, 0)
	for rows.Next() {
		var row GlossaryRow
		if err := rows.Scan(&row.SourceURL, &row.Glossary); err != nil {
			return nil, fmt.Errorf("failed to scan %s glossary: %w", source, err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// ContentWithoutGlossary returns editorial bodies that still need a glossary.
func (r *Repository) ContentWithoutGlossary(ctx context.Context, limit int) ([]*domain.EditorialContent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, site, url, lang, COALESCE(content_translated, ''), created_at
		FROM food_editorial_post_content_translations
		WHERE lang = $1 AND (glossary IS NULL OR glossary = '{}'::jsonb OR glossary = '[]'::jsonb)
			AND content_translated IS NOT NULL AND content_translated <> ''
		ORDER BY created_at DESC
		LIMIT NULLIF($2, 0)`, constants.ContentLang, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query content without glossary: %w", err)
	}
	defer rows.Close()

	contents := make([]*domain.EditorialContent, 0)
	for rows.Next() {
		var c domain.EditorialContent
		if err := rows.Scan(&c.ID, &c.Site, &c.URL, &c.Lang, &c.ContentTranslated, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan content: %w", err)
		}
		contents = append(contents, &c)
	}
	return contents, rows.Err()
}

// UpdateContentGlossary stores a generated glossary on an editorial body.
func (r *Repository) UpdateContentGlossary(ctx context.Context, id string, glossary domain.GlossaryJSON) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE food_editorial_post_content_translations
		SET glossary = $1::jsonb, updated_at = now()
		WHERE id::text = $2`, glossary, id)
	if err != nil {
		return fmt.Errorf("failed to update glossary for %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("content %s not found", id)
	}
	return nil
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	values := make([]string, 0)
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		if v.Valid && v.String != "" {
			values = append(values, v.String)
		}
	}
	return values, rows.Err()
}

func buildRestaurantListQuery(filter domain.RestaurantFilter) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`SELECT` + restaurantColumns + `
		FROM popular_restaurants_localizations l
		JOIN popular_restaurants p ON p.id = l.restaurant_id
		WHERE l.lang = $1`)
	args := []any{constants.ContentLang}

	if clause, regionArgs := regionClause(filter.Region, len(args)+1); clause != "" {
		sb.WriteString(" AND " + clause)
		args = append(args, regionArgs...)
	}
	if filter.RegionDetail != "" {
		args = append(args, filter.RegionDetail)
		fmt.Fprintf(&sb, " AND l.region_detail = $%d", len(args))
	}
	if filter.RegionDetailName != "" {
		args = append(args, filter.RegionDetailName)
		fmt.Fprintf(&sb, " AND l.region_detail_name = $%d", len(args))
	}

	sb.WriteString(" ORDER BY l.created_at DESC")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	return sb.String(), args
}

// regionClause matches region_name by region code prefix. SEOUL covers the
// GANGNAM and GANGBUK districts.
func regionClause(region string, firstArg int) (string, []any) {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		return "", nil
	}

	if region == constants.RegionSeoul {
		parts := make([]string, 0, len(constants.SeoulDistricts))
		args := make([]any, 0, len(constants.SeoulDistricts))
		for i, district := range constants.SeoulDistricts {
			parts = append(parts, fmt.Sprintf("l.region_name ILIKE $%d", firstArg+i))
			args = append(args, likePrefix(district))
		}
		return "(" + strings.Join(parts, " OR ") + ")", args
	}

	return fmt.Sprintf("l.region_name ILIKE $%d", firstArg), []any{likePrefix(region)}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePrefix(value string) string {
	return likeEscaper.Replace(strings.ToUpper(value)) + "%"
}
