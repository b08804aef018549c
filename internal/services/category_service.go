package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// CategoryService manages the owner's category hierarchy.
type CategoryService struct {
	Deps
}

func NewCategoryService(d Deps) *CategoryService {
	return &CategoryService{Deps: d}
}

// CategoryNode is a category with its resolved path and children.
type CategoryNode struct {
	core.Category
	FullPath         string         `json:"full_path"`
	HasSubcategories bool           `json:"has_subcategories"`
	Subcategories    []CategoryNode `json:"subcategories"`
}

// DefaultCategories are offered to new owners.
var DefaultCategories = []core.Category{
	{Name: "Food & Dining", Type: core.CategoryExpense, Icon: "Restaurant", Color: "#FF5722"},
	{Name: "Transportation", Type: core.CategoryExpense, Icon: "DirectionsCar", Color: "#795548"},
	{Name: "Shopping", Type: core.CategoryExpense, Icon: "ShoppingCart", Color: "#E91E63"},
	{Name: "Entertainment", Type: core.CategoryExpense, Icon: "Movie", Color: "#9C27B0"},
	{Name: "Bills & Utilities", Type: core.CategoryExpense, Icon: "Receipt", Color: "#3F51B5"},
	{Name: "Healthcare", Type: core.CategoryExpense, Icon: "LocalHospital", Color: "#00BCD4"},
	{Name: "Education", Type: core.CategoryExpense, Icon: "School", Color: "#009688"},
	{Name: "Personal Care", Type: core.CategoryExpense, Icon: "Spa", Color: "#4CAF50"},
	{Name: "Rent/Mortgage", Type: core.CategoryExpense, Icon: "Home", Color: "#FF9800"},
	{Name: "Insurance", Type: core.CategoryExpense, Icon: "Security", Color: "#607D8B"},
	{Name: "Salary", Type: core.CategoryIncome, Icon: "Work", Color: "#4CAF50"},
	{Name: "Freelance", Type: core.CategoryIncome, Icon: "Computer", Color: "#2196F3"},
	{Name: "Investment", Type: core.CategoryIncome, Icon: "TrendingUp", Color: "#FF9800"},
	{Name: "Business", Type: core.CategoryIncome, Icon: "Business", Color: "#9C27B0"},
	{Name: "Other Income", Type: core.CategoryIncome, Icon: "AttachMoney", Color: "#607D8B"},
}

func (s *CategoryService) Create(ctx context.Context, owner string, c *core.Category) error {
	if c.Color == "" {
		c.Color = core.DefaultCategoryColor
	}
	if err := c.Validate(); err != nil {
		return err
	}
	return s.Store.Atomic(ctx, func(tx ledger.Tx) error {
		if err := checkParent(ctx, tx, owner, c); err != nil {
			return err
		}
		return tx.Categories().Create(ctx, owner, c)
	})
}

func (s *CategoryService) Update(ctx context.Context, owner string, c *core.Category) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return s.Store.Atomic(ctx, func(tx ledger.Tx) error {
		if err := checkParent(ctx, tx, owner, c); err != nil {
			return err
		}
		return tx.Categories().Update(ctx, owner, c)
	})
}

// CreateDefaults adds the default categories the owner does not have yet,
// matching by name, and returns the ones it created.
func (s *CategoryService) CreateDefaults(ctx context.Context, owner string) ([]core.Category, error) {
	created := []core.Category{}
	err := s.Store.Atomic(ctx, func(tx ledger.Tx) error {
		existing, err := tx.Categories().List(ctx, owner, ledger.CategoryFilter{})
		if err != nil {
			return err
		}
		have := make(map[string]bool, len(existing))
		for _, c := range existing {
			have[c.Name] = true
		}

		for _, def := range DefaultCategories {
			if have[def.Name] {
				continue
			}
			c := def
			c.Active = true
			if err := tx.Categories().Create(ctx, owner, &c); err != nil {
				return fmt.Errorf("create default category %q: %w", c.Name, err)
			}
			created = append(created, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Default categories created", "owner_id", owner, "count", len(created))
	return created, nil
}

// Tree returns the categories matching f arranged under their parents,
// starting from the top-level ones.
func (s *CategoryService) Tree(ctx context.Context, owner string, f ledger.CategoryFilter) ([]CategoryNode, error) {
	f.ParentsOnly = false
	all, err := s.Store.Categories().List(ctx, owner, f)
	if err != nil {
		return nil, err
	}
	return BuildCategoryTree(all), nil
}

// List returns the categories matching f, each resolved against the owner's
// full category set.
func (s *CategoryService) List(ctx context.Context, owner string, f ledger.CategoryFilter) ([]CategoryNode, error) {
	all, err := s.Store.Categories().List(ctx, owner, ledger.CategoryFilter{})
	if err != nil {
		return nil, err
	}
	matching, err := s.Store.Categories().List(ctx, owner, f)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]core.Category, len(all))
	for _, c := range all {
		byID[c.ID] = c
	}
	children := childrenIndex(all)

	out := make([]CategoryNode, 0, len(matching))
	for _, c := range matching {
		out = append(out, buildNode(c, byID, children))
	}
	return out, nil
}

// Node resolves one category with its path and children.
func (s *CategoryService) Node(ctx context.Context, owner string, id int64) (CategoryNode, error) {
	all, err := s.Store.Categories().List(ctx, owner, ledger.CategoryFilter{})
	if err != nil {
		return CategoryNode{}, err
	}
	byID := make(map[int64]core.Category, len(all))
	for _, c := range all {
		byID[c.ID] = c
	}
	c, ok := byID[id]
	if !ok {
		return CategoryNode{}, core.NotFound("category", id)
	}
	return buildNode(c, byID, childrenIndex(all)), nil
}

// BuildCategoryTree nests categories under their parents. Categories whose
// parent is not in the list are treated as roots.
func BuildCategoryTree(all []core.Category) []CategoryNode {
	byID := make(map[int64]core.Category, len(all))
	for _, c := range all {
		byID[c.ID] = c
	}
	children := childrenIndex(all)

	roots := []CategoryNode{}
	for _, c := range all {
		if c.ParentID != nil {
			if _, ok := byID[*c.ParentID]; ok {
				continue
			}
		}
		roots = append(roots, buildNode(c, byID, children))
	}
	return roots
}

func childrenIndex(all []core.Category) map[int64][]core.Category {
	children := map[int64][]core.Category{}
	for _, c := range all {
		if c.ParentID != nil {
			children[*c.ParentID] = append(children[*c.ParentID], c)
		}
	}
	return children
}

func buildNode(c core.Category, byID map[int64]core.Category, children map[int64][]core.Category) CategoryNode {
	var parent *core.Category
	if c.ParentID != nil {
		if p, ok := byID[*c.ParentID]; ok {
			parent = &p
		}
	}
	node := CategoryNode{Category: c, FullPath: c.FullPath(parent), Subcategories: []CategoryNode{}}
	for _, child := range children[c.ID] {
		node.Subcategories = append(node.Subcategories, buildNode(child, byID, children))
	}
	node.HasSubcategories = len(node.Subcategories) > 0
	return node
}

// checkParent rejects unknown parents and parent chains that loop back to c.
func checkParent(ctx context.Context, tx ledger.Tx, owner string, c *core.Category) error {
	seen := map[int64]bool{c.ID: c.ID != 0}
	for id := c.ParentID; id != nil; {
		if seen[*id] {
			return core.Invalid("parent_category", "a category cannot be its own ancestor")
		}
		seen[*id] = true
		parent, err := tx.Categories().Get(ctx, owner, *id)
		if errors.Is(err, core.ErrNotFound) {
			return core.Invalid("parent_category", "parent category does not exist")
		}
		if err != nil {
			return err
		}
		id = parent.ParentID
	}
	return nil
}
