// Package pricing holds the static service catalog. Prices are not stored on
// customer or appointment records; every consumer resolves them through this
// lookup so the same name always yields the same price.
package pricing

import "strings"

// FallbackPrice applies to any service name missing from the catalog.
const FallbackPrice = 25

type Service struct {
	Name  string `json:"name"`
	Price int    `json:"price"`
}

var catalog = []Service{
	{Name: "Saç Kesimi", Price: 150},
	{Name: "Sakal Tıraşı", Price: 80},
	{Name: "Saç Yıkama", Price: 50},
	{Name: "Saç Boyama", Price: 300},
	{Name: "Perma", Price: 400},
	{Name: "Saç Bakımı", Price: 200},
	{Name: "Kaş Düzeltme", Price: 60},
	{Name: "Yüz Bakımı", Price: 250},
}

var prices = func() map[string]int {
	m := make(map[string]int, len(catalog))
	for _, s := range catalog {
		m[s.Name] = s.Price
	}
	return m
}()

func Price(service string) int {
	if p, ok := prices[strings.TrimSpace(service)]; ok {
		return p
	}
	return FallbackPrice
}

func Total(services []string) int {
	total := 0
	for _, s := range services {
		total += Price(s)
	}
	return total
}

// Services returns the bookable catalog in display order.
func Services() []Service {
	out := make([]Service, len(catalog))
	copy(out, catalog)
	return out
}

var timeSlots = []string{
	"09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
	"12:00", "12:30", "13:00", "13:30", "14:00", "14:30",
	"15:00", "15:30", "16:00", "16:30", "17:00", "17:30",
}

// TimeSlots returns the bookable half-hour slots of a working day.
func TimeSlots() []string {
	out := make([]string, len(timeSlots))
	copy(out, timeSlots)
	return out
}

func ValidSlot(slot string) bool {
	for _, s := range timeSlots {
		if s == slot {
			return true
		}
	}
	return false
}
