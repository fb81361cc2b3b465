package constants

import "time"

var CacheTTL = struct {
	EditorialList   time.Duration
	EditorialDetail time.Duration
	RestaurantList  time.Duration
	RestaurantFull  time.Duration
	RegionDetails   time.Duration
	Episodes        time.Duration
	Glossary        time.Duration
	TrendingVideos  time.Duration
	Sitemap         time.Duration
}{
	EditorialList:   5 * time.Minute,  // 5분 - 에디토리얼 목록
	EditorialDetail: 30 * time.Minute, // 30분 - 에디토리얼 상세
	RestaurantList:  10 * time.Minute, // 10분 - 식당 목록
	RestaurantFull:  30 * time.Minute, // 30분 - 식당 상세
	RegionDetails:   time.Hour,        // 1시간 - 세부 지역 목록
	Episodes:        time.Hour,        // 1시간 - 흑백요리사 에피소드
	Glossary:        time.Hour,        // 1시간 - 통합 용어집
	TrendingVideos:  time.Hour,        // 1시간 - 유튜브 인기 영상
	Sitemap:         time.Hour,        // 1시간 - 사이트맵
}

var RedisConfig = struct {
	ReadyTimeout time.Duration
	KeyPrefix    string
}{
	ReadyTimeout: 5 * time.Second,
	KeyPrefix:    "content:",
}

var CircuitBreakerConfig = struct {
	FailureThreshold int
	ResetTimeout     time.Duration
	RateLimitTimeout time.Duration
}{
	FailureThreshold: 3,                // 3회 연속 실패 시 Circuit OPEN
	ResetTimeout:     30 * time.Second, // 기본 재시도 대기 시간
	RateLimitTimeout: time.Hour,        // 429 Rate Limit 전용 타임아웃
}

var ListingLimits = struct {
	DefaultEditorials  int
	FeaturedEditorials int
	FeaturedPool       int
	DefaultRestaurants int
	FeaturedEpisodes   int
	MaxPageSize        int
	SitemapItems       int
	MaxAnnotateBytes   int64
}{
	DefaultEditorials:  50,
	FeaturedEditorials: 6,
	FeaturedPool:       20, // 최신 20개 중에서 랜덤 선정
	DefaultRestaurants: 100,
	FeaturedEpisodes:   8,
	MaxPageSize:        200,
	SitemapItems:       100,
	MaxAnnotateBytes:   256 << 10,
}

var YouTubeConfig = struct {
	CategoryID     string
	MaxResults     int64
	DefaultLimit   int
	FetchOverhead  int
	DailyQuota     int
	ListQuotaCost  int
	RequestTimeout time.Duration
}{
	CategoryID:     "26", // Howto & Style
	MaxResults:     50,   // API 최대 페이지 크기
	DefaultLimit:   100,
	FetchOverhead:  20, // 키워드 필터링 손실 보정
	DailyQuota:     10000,
	ListQuotaCost:  1,
	RequestTimeout: 10 * time.Second,
}

// FoodKeywords filter trending videos down to Korean food content.
var FoodKeywords = []string{"먹방", "맛집", "점심", "포장마차", "식당"}

var AIConfig = struct {
	RequestTimeout  time.Duration
	MaxContentRunes int
	BackfillWorkers int
}{
	RequestTimeout:  60 * time.Second,
	MaxContentRunes: 6000,
	BackfillWorkers: 4,
}

var StringLimits = struct {
	SEODescription   int
	ShortDescription int
	ShortCutoff      int
}{
	SEODescription:   160,
	ShortDescription: 100,
	ShortCutoff:      120,
}

// RegionNameToCode maps Korean province names to region codes.
var RegionNameToCode = map[string]string{
	"강원":  "GANGWON",
	"경기":  "GYEONGGI",
	"경남":  "GYEONGNAM",
	"경북":  "GYEONGBUK",
	"광주":  "GWANGJU",
	"대구":  "DAEGU",
	"대전":  "DAEJEON",
	"부산":  "BUSAN",
	"서울":  "SEOUL",
	"세종":  "SEJONG",
	"울산":  "ULSAN",
	"인천":  "INCHEON",
	"전남":  "JEONNAM",
	"전북":  "JEONBUK",
	"제주도": "JEJU",
	"제주":  "JEJU",
	"충남":  "CHUNGNAM",
	"충북":  "CHUNGBUK",
}

// RegionNameToDisplay maps Korean province names to their display names.
var RegionNameToDisplay = map[string]string{
	"강원":  "Gangwon",
	"경기":  "Gyeonggi",
	"경남":  "Gyeongnam",
	"경북":  "Gyeongbuk",
	"광주":  "Gwangju",
	"대구":  "Daegu",
	"대전":  "Daejeon",
	"부산":  "Busan",
	"서울":  "Seoul",
	"세종":  "Sejong",
	"울산":  "Ulsan",
	"인천":  "Incheon",
	"전남":  "Jeonnam",
	"전북":  "Jeonbuk",
	"제주도": "Jeju",
	"제주":  "Jeju",
	"충남":  "Chungnam",
	"충북":  "Chungbuk",
}

// SeoulDistricts are the region_name prefixes grouped under SEOUL.
var SeoulDistricts = []string{"GANGNAM", "GANGBUK"}

const (
	RegionSeoul = "SEOUL"
	ContentLang = "en"
)
