package catalog

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// BatchType distinguishes batches with discrete pickup slots from
// freezer stock with open-ended pickup.
type BatchType string

const (
	BatchRegular BatchType = "regular"
	BatchFreezer BatchType = "freezer"
)

// PickupSlot is one pickup window for a regular batch.
type PickupSlot struct {
	Date string `yaml:"date" json:"date"`
	Time string `yaml:"time" json:"time"`
}

// Product is a sellable catalog entry. UnitPrice is either the fixed package
// price (ExpectedPrice == 0) or the per-kg rate (ExpectedPrice > 0, in which
// case ExpectedPrice is the estimated per-package price shown to the buyer).
type Product struct {
	ID              string  `yaml:"id" json:"id"`
	Name            string  `yaml:"name" json:"name"`
	Description     string  `yaml:"description" json:"-"`
	UnitPrice       float64 `yaml:"price" json:"price"`
	DisplayWeight   string  `yaml:"weight_display" json:"weightDisplay"`
	PackagingPieces int     `yaml:"packaging_pieces" json:"packagingPieces"`
	PackagingGrams  int     `yaml:"packaging_grams" json:"packagingGrams"`
	ExpectedPrice   float64 `yaml:"expected_price" json:"expectedPrice"`

	// Filled from the owning batch during load.
	BatchID    string       `yaml:"-" json:"batchId"`
	BatchName  string       `yaml:"-" json:"batchName"`
	BatchType  BatchType    `yaml:"-" json:"batchType"`
	PickupText string       `yaml:"-" json:"pickupText,omitempty"`
	Slots      []PickupSlot `yaml:"-" json:"pickupSlots,omitempty"`
}

// EffectivePrice is the per-package price used for totals: the expected
// per-package estimate when sold by weight, otherwise the unit price.
func (p Product) EffectivePrice() float64 {
	if p.ExpectedPrice > 0 {
		return p.ExpectedPrice
	}
	return p.UnitPrice
}

// PerKg reports whether the product is sold by weight.
func (p Product) PerKg() bool {
	return p.ExpectedPrice > 0 || strings.Contains(strings.ToLower(p.DisplayWeight), "kg")
}

// PackagingText derives the short packaging label shown on line items.
func (p Product) PackagingText() string {
	if p.ExpectedPrice > 0 {
		if p.PackagingGrams > 0 {
			if p.PackagingPieces > 1 {
				return fmt.Sprintf("%d stuks × ±%dg", p.PackagingPieces, p.PackagingGrams)
			}
			return fmt.Sprintf("±%dg", p.PackagingGrams)
		}
		return ""
	}
	if p.PackagingGrams > 0 && p.PackagingPieces > 1 {
		return fmt.Sprintf("%d stuks", p.PackagingPieces)
	}
	return ""
}

// Batch groups products sharing a fulfillment window. An order may draw from
// only one batch.
type Batch struct {
	ID             string       `yaml:"id" json:"id"`
	Name           string       `yaml:"name" json:"name"`
	Type           BatchType    `yaml:"type" json:"type"`
	PickupLocation string       `yaml:"pickup_location" json:"pickupLocation,omitempty"`
	PickupText     string       `yaml:"pickup_text" json:"pickupText,omitempty"`
	PickupSlots    []PickupSlot `yaml:"pickup_slots" json:"pickupSlots,omitempty"`
	Products       []Product    `yaml:"products" json:"products"`
}

// Catalog is the typed, read-only product catalog loaded once at startup.
type Catalog struct {
	batches []Batch
	byID    map[string]Product
	order   []string
}

var (
	// ErrProductNotFound indicates an unknown product id.
	ErrProductNotFound = errors.New("catalog: product not found")

	errNoBatches = errors.New("catalog: no batches defined")
)

type catalogFile struct {
	Batches []Batch `yaml:"batches"`
}

// LoadFile reads and validates a catalog YAML file.
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse builds a Catalog from raw YAML.
func Parse(raw []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}
	if len(file.Batches) == 0 {
		return nil, errNoBatches
	}

	c := &Catalog{byID: make(map[string]Product)}
	for i := range file.Batches {
		b := &file.Batches[i]
		if strings.TrimSpace(b.ID) == "" {
			return nil, fmt.Errorf("catalog: batch %d has no id", i)
		}
		if b.Type == "" {
			b.Type = BatchRegular
		}
		if b.Type != BatchRegular && b.Type != BatchFreezer {
			return nil, fmt.Errorf("catalog: batch %s: unknown type %q", b.ID, b.Type)
		}
		for j := range b.Products {
			p := &b.Products[j]
			if strings.TrimSpace(p.ID) == "" {
				return nil, fmt.Errorf("catalog: batch %s: product %d has no id", b.ID, j)
			}
			if _, dup := c.byID[p.ID]; dup {
				return nil, fmt.Errorf("catalog: duplicate product id %q", p.ID)
			}
			if p.UnitPrice <= 0 {
				return nil, fmt.Errorf("catalog: product %s: price must be positive", p.ID)
			}
			p.BatchID = b.ID
			p.BatchName = b.Name
			p.BatchType = b.Type
			if b.Type == BatchFreezer {
				p.PickupText = b.PickupText
			} else {
				p.Slots = b.PickupSlots
			}
			c.byID[p.ID] = *p
			c.order = append(c.order, p.ID)
		}
	}

	// Freezer batches list after regular ones, mirroring the shop page order.
	sort.SliceStable(file.Batches, func(i, j int) bool {
		return file.Batches[i].Type == BatchRegular && file.Batches[j].Type == BatchFreezer
	})
	c.batches = file.Batches
	return c, nil
}

// Batches returns all batches, regular first.
func (c *Catalog) Batches() []Batch {
	return c.batches
}

// Product looks up a product by id.
func (c *Catalog) Product(id string) (Product, error) {
	p, ok := c.byID[id]
	if !ok {
		return Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return p, nil
}

// Products returns every product in catalog order.
func (c *Catalog) Products() []Product {
	out := make([]Product, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// OtherBatchProducts lists the ids of products outside the given batch. The
// shop uses this to disable catalog entries once an order is batch-locked.
func (c *Catalog) OtherBatchProducts(batchID string) []string {
	var out []string
	for _, id := range c.order {
		if c.byID[id].BatchID != batchID {
			out = append(out, id)
		}
	}
	return out
}
