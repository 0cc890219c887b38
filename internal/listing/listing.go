// Package listing реализует фильтрацию и сортировку заказов и бронирований
// для административных списков.
package listing

import (
	"sort"
	"strings"

	"github.com/ndenisov/webstudio-system/internal/model"
)

// StatusAll — значение фильтра статуса, пропускающее все записи.
const StatusAll = "all"

// SortState описывает текущее состояние сортировки списка.
type SortState struct {
	Key  string
	Desc bool
}

// Toggle возвращает новое состояние после выбора ключа сортировки:
// повторный выбор того же ключа меняет направление, новый ключ
// сбрасывает направление на убывающее.
func (s SortState) Toggle(key string) SortState {
	if s.Key == key {
		return SortState{Key: key, Desc: !s.Desc}
	}
	return SortState{Key: key, Desc: true}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// FilterOrders возвращает заказы, подходящие под текстовый запрос и фильтр статуса.
// Запрос сопоставляется без учёта регистра с идентификатором заказа, именем
// и почтой клиента; пустой запрос пропускает все записи. Пустой результат —
// допустимое состояние, а не ошибка.
func FilterOrders(orders []model.Order, query, status string) []model.Order {
	res := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if status != StatusAll && status != "" && string(o.Status) != status {
			continue
		}
		if query != "" &&
			!containsFold(o.ID, query) &&
			!containsFold(o.CustomerName, query) &&
			!containsFold(o.CustomerEmail, query) {
			continue
		}
		res = append(res, o)
	}
	return res
}

// SortOrders сортирует заказы по указанному состоянию сортировки.
// Строки сравниваются без учёта регистра; сортировка устойчивая.
func SortOrders(orders []model.Order, state SortState) {
	sort.SliceStable(orders, func(i, j int) bool {
		c := compareOrders(orders[i], orders[j], state.Key)
		if state.Desc {
			return c > 0
		}
		return c < 0
	})
}

func compareOrders(a, b model.Order, key string) int {
	switch key {
	case "total", "totalPrice":
		return compareInt64(a.Totals.Total, b.Totals.Total)
	case "customer", "clientName":
		return compareFold(a.CustomerName, b.CustomerName)
	case "status":
		return compareFold(string(a.Status), string(b.Status))
	case "id":
		return compareFold(a.ID, b.ID)
	default: // date
		return compareTime(a, b)
	}
}

func compareTime(a, b model.Order) int {
	switch {
	case a.CreatedAt.Before(b.CreatedAt):
		return -1
	case a.CreatedAt.After(b.CreatedAt):
		return 1
	}
	return 0
}

// FilterBookings возвращает бронирования, подходящие под запрос и фильтр статуса.
// В отличие от заказов, запрос дополнительно сопоставляется с названием проекта.
func FilterBookings(bookings []model.Booking, query, status string) []model.Booking {
	res := make([]model.Booking, 0, len(bookings))
	for _, bk := range bookings {
		if status != StatusAll && status != "" && string(bk.Status) != status {
			continue
		}
		if query != "" &&
			!containsFold(bk.ID, query) &&
			!containsFold(bk.ClientName, query) &&
			!containsFold(bk.ClientEmail, query) &&
			!containsFold(bk.ProjectName, query) {
			continue
		}
		res = append(res, bk)
	}
	return res
}

// SortBookings сортирует бронирования по указанному состоянию сортировки.
func SortBookings(bookings []model.Booking, state SortState) {
	sort.SliceStable(bookings, func(i, j int) bool {
		c := compareBookings(bookings[i], bookings[j], state.Key)
		if state.Desc {
			return c > 0
		}
		return c < 0
	})
}

func compareBookings(a, b model.Booking, key string) int {
	switch key {
	case "total", "totalPrice":
		return compareInt64(a.TotalPrice, b.TotalPrice)
	case "customer", "clientName":
		return compareFold(a.ClientName, b.ClientName)
	case "status":
		return compareFold(string(a.Status), string(b.Status))
	case "project":
		return compareFold(a.ProjectName, b.ProjectName)
	case "id":
		return compareFold(a.ID, b.ID)
	default: // date
		switch {
		case a.ScheduledFor.Before(b.ScheduledFor):
			return -1
		case a.ScheduledFor.After(b.ScheduledFor):
			return 1
		}
		return 0
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
