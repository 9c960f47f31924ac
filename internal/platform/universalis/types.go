// Package universalis contains clients for the Universalis market data API:
// a WebSocket client for the real-time listing and stats feed, and a REST
// client for reference data (data centers and worlds).
package universalis

import (
	"time"

	"github.com/alanyoungcy/flipbot/internal/domain"
)

// WSCommand is a subscribe or unsubscribe command sent over the feed socket.
type WSCommand struct {
	Type    string  `json:"type"`
	Channel string  `json:"channel"`
	Worlds  []int32 `json:"worlds,omitempty"`
}

// WireListing is one listing row inside a ListingsMessage.
type WireListing struct {
	PricePerUnit   int64 `json:"pricePerUnit"`
	Quantity       int64 `json:"quantity"`
	Total          int64 `json:"total"`
	HQ             bool  `json:"hq"`
	LastReviewTime int64 `json:"lastReviewTime"`
}

// ListingsMessage is a full listing snapshot for one (world, item) pair on
// the "listings/add" channel. The message replaces all previous listings for
// that pair.
type ListingsMessage struct {
	Event    string        `json:"event"`
	World    int32         `json:"world"`
	Item     int32         `json:"item"`
	ItemName string        `json:"itemName,omitempty"`
	Listings []WireListing `json:"listings"`
}

// StatsMessage carries aggregated market statistics for one (world, item, hq)
// tuple on the "stats/update" channel.
type StatsMessage struct {
	Event         string  `json:"event"`
	World         int32   `json:"world"`
	Item          int32   `json:"item"`
	HQ            bool    `json:"hq"`
	MarketVolume  float64 `json:"marketVolume"`
	Interest      float64 `json:"interest"`
	Popularity    float64 `json:"popularity"`
	Sales         int64   `json:"sales"`
	Views         int64   `json:"views"`
	MinPrice      int64   `json:"minPrice"`
	AvgPrice      float64 `json:"avgPrice"`
	ListingCount  int64   `json:"listingCount"`
	MinSales      float64 `json:"minSales"`
	MaxSales      float64 `json:"maxSales"`
	AvgSales      float64 `json:"avgSales"`
	UnixTimestamp int64   `json:"timestamp"`
}

// APIDataCenter is the REST representation of a data center.
type APIDataCenter struct {
	Name   string  `json:"name"`
	Region string  `json:"region"`
	Worlds []int32 `json:"worlds"`
}

// APIWorld is the REST representation of a world.
type APIWorld struct {
	ID   int32  `json:"id"`
	Name string `json:"name"`
}

// ListingsToDomain converts a listing snapshot into domain listings for the
// given world. Wire timestamps are unix seconds.
func ListingsToDomain(msg *ListingsMessage, world domain.World) []domain.Listing {
	out := make([]domain.Listing, 0, len(msg.Listings))
	for _, l := range msg.Listings {
		total := l.Total
		if total == 0 {
			total = l.PricePerUnit * l.Quantity
		}
		out = append(out, domain.Listing{
			World:     world,
			ItemID:    msg.Item,
			HQ:        l.HQ,
			UnitPrice: l.PricePerUnit,
			Quantity:  l.Quantity,
			Total:     total,
			Updated:   time.Unix(l.LastReviewTime, 0).UTC(),
		})
	}
	return out
}

// StatsToDomain converts a stats update into domain stats for the given world.
func StatsToDomain(msg *StatsMessage, world domain.World) domain.ItemStats {
	updated := time.Unix(msg.UnixTimestamp, 0).UTC()
	if msg.UnixTimestamp == 0 {
		updated = time.Now().UTC()
	}
	return domain.ItemStats{
		World:        world,
		Item:         domain.Item{ID: msg.Item},
		HQ:           msg.HQ,
		MarketVolume: msg.MarketVolume,
		Interest:     msg.Interest,
		Popularity:   msg.Popularity,
		Sales:        msg.Sales,
		Views:        msg.Views,
		MinPrice:     msg.MinPrice,
		AvgPrice:     msg.AvgPrice,
		ListingCount: msg.ListingCount,
		MinSales:     msg.MinSales,
		MaxSales:     msg.MaxSales,
		AvgSales:     msg.AvgSales,
		Updated:      updated,
	}
}
