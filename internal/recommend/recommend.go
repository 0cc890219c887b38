// Package recommend реализует подбор технологий под тип сайта и выбранные возможности.
package recommend

import (
	"math"
	"sort"

	"github.com/ndenisov/webstudio-system/internal/model"
)

// Категории каталога технологий.
const (
	CategoryFrontend  = "frontend"
	CategoryBackend   = "backend"
	CategoryDatabase  = "database"
	CategoryCMS       = "cms"
	CategoryEcommerce = "ecommerce"
	CategoryStyling   = "styling"
	CategoryHosting   = "hosting"
)

// Бонусы за соответствие типа сайта тегу технологии.
// Бонус дают только эти четыре пары; остальные типы не влияют на оценку.
var typeBonuses = map[string]struct {
	tag   string
	bonus int
}{
	"E-commerce": {tag: "ecommerce", bonus: 30},
	"Blog":       {tag: "blog", bonus: 30},
	"Portfolio":  {tag: "frontend", bonus: 20},
	"Corporate":  {tag: "enterprise", bonus: 20},
}

// Score вычисляет оценку одной технологии для указанного типа сайта
// и набора выбранных возможностей. Неизвестные возможности дают 0.
func Score(tech model.Technology, websiteType string, features []string) int {
	score := 0

	if tb, ok := typeBonuses[websiteType]; ok && tech.HasTag(tb.tag) {
		score += tb.bonus
	}

	for _, f := range features {
		switch f {
		case "ecommerce":
			if tech.HasTag("ecommerce") {
				score += 25
			}
		case "blog":
			if tech.HasTag("blog") || tech.HasTag("cms") {
				score += 20
			}
		case "gallery":
			if tech.HasTag("frontend") {
				score += 10
			}
		case "contactForm":
			if tech.HasTag("backend") {
				score += 10
			}
		case "booking":
			if tech.HasTag("api") {
				score += 15
			}
		}
	}

	score += tech.Popularity * 2
	score -= tech.Complexity

	return score
}

// MatchPercent переводит оценку в отображаемый процент соответствия.
// Значение ограничено диапазоном [0, 99]: 100% не показывается никогда.
func MatchPercent(score int) int {
	pct := int(math.Round(float64(score) / 2))
	if pct > 99 {
		return 99
	}
	if pct < 0 {
		return 0
	}
	return pct
}

// Rank оценивает весь каталог и возвращает список, отсортированный
// по убыванию оценки. При равенстве оценок сохраняется порядок каталога.
func Rank(catalog []model.Technology, websiteType string, features []string) []model.TechnologyScore {
	scored := make([]model.TechnologyScore, 0, len(catalog))
	for _, tech := range catalog {
		s := Score(tech, websiteType, features)
		scored = append(scored, model.TechnologyScore{
			Technology: tech,
			Score:      s,
			MatchPct:   MatchPercent(s),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	return scored
}

// Stack — рекомендуемый набор: лучшая технология в каждой из основных категорий.
type Stack struct {
	Frontend *model.TechnologyScore
	Backend  *model.TechnologyScore
	Database *model.TechnologyScore
}

// RecommendedStack выбирает из ранжированного списка первую технологию
// каждой основной категории.
func RecommendedStack(ranked []model.TechnologyScore) Stack {
	var stack Stack
	for i := range ranked {
		switch ranked[i].Technology.Category {
		case CategoryFrontend:
			if stack.Frontend == nil {
				stack.Frontend = &ranked[i]
			}
		case CategoryBackend:
			if stack.Backend == nil {
				stack.Backend = &ranked[i]
			}
		case CategoryDatabase:
			if stack.Database == nil {
				stack.Database = &ranked[i]
			}
		}
	}
	return stack
}

// FilterByCategory возвращает элементы ранжированного списка указанной категории
// с сохранением порядка. Пустая категория возвращает весь список.
func FilterByCategory(ranked []model.TechnologyScore, category string) []model.TechnologyScore {
	if category == "" {
		return ranked
	}

	res := make([]model.TechnologyScore, 0, len(ranked))
	for _, ts := range ranked {
		if ts.Technology.Category == category {
			res = append(res, ts)
		}
	}
	return res
}
