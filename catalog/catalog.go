// Package catalog holds the fixed category→dish menu data. The data is
// read-only; prices on past orders are captured at order time and never
// recomputed from here.
package catalog

// Dish is one orderable menu position.
type Dish struct {
	ID    int
	Name  string
	Price int64
}

// CategoryKeys fixes the display order of categories.
var CategoryKeys = []string{"first", "second", "salads", "drinks"}

// CategoryTitles maps category keys to their display names.
var CategoryTitles = map[string]string{
	"first":  "Первые блюда",
	"second": "Вторые блюда",
	"salads": "Салаты",
	"drinks": "Напитки",
}

var menu = map[string][]Dish{
	"first": {
		{ID: 1, Name: "Суп 1", Price: 120},
		{ID: 2, Name: "Борщ", Price: 160},
	},
	"second": {
		{ID: 1, Name: "Котлета", Price: 220},
		{ID: 2, Name: "Плов", Price: 240},
	},
	"salads": {
		{ID: 1, Name: "Цезарь", Price: 200},
		{ID: 2, Name: "Греческий", Price: 180},
	},
	"drinks": {
		{ID: 1, Name: "Сок", Price: 90},
		{ID: 2, Name: "Чай", Price: 60},
	},
}

// Title returns the display name for a category key, falling back to the
// key itself for unknown categories.
func Title(categoryKey string) string {
	if t, ok := CategoryTitles[categoryKey]; ok {
		return t
	}
	return categoryKey
}

// Dishes returns the dishes of one category, or nil for unknown keys.
func Dishes(categoryKey string) []Dish {
	return menu[categoryKey]
}

// Lookup resolves a dish within a category. The second return is false
// when either the category or the dish id is unknown.
func Lookup(categoryKey string, dishID int) (Dish, bool) {
	for _, d := range menu[categoryKey] {
		if d.ID == dishID {
			return d, true
		}
	}
	return Dish{}, false
}

// PageSize is the number of dishes shown per keyboard page.
const PageSize = 5

// Page slices one page out of a category. It clamps page into range and
// also returns the clamped page index and the total page count.
func Page(categoryKey string, page int) (dishes []Dish, clamped, totalPages int) {
	all := menu[categoryKey]
	totalPages = (len(all) + PageSize - 1) / PageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 0 {
		page = 0
	}
	if page > totalPages-1 {
		page = totalPages - 1
	}
	start := page * PageSize
	end := start + PageSize
	if start > len(all) {
		start = len(all)
	}
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], page, totalPages
}
