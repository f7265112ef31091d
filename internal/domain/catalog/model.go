package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Provider is a treating provider that reports can reference.
type Provider struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Specialty *string   `db:"specialty" json:"specialty,omitempty"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// BarrierOption is one selectable barrier to recovery. Reports store the
// option id, never a copy of the label.
type BarrierOption struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Category  string    `db:"category" json:"category"`
	Label     string    `db:"label" json:"label"`
	SortOrder int       `db:"sort_order" json:"sort_order"`
	IsActive  bool      `db:"is_active" json:"is_active"`
}

// GroupBarriers groups options by category, keeping the input order inside
// each group. Empty categories fall under "General".
func GroupBarriers(options []*BarrierOption) map[string][]*BarrierOption {
	grouped := make(map[string][]*BarrierOption)
	for _, o := range options {
		cat := o.Category
		if cat == "" {
			cat = "General"
		}
		grouped[cat] = append(grouped[cat], o)
	}
	return grouped
}
