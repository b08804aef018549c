package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// PlanningService covers goals, projects and the transaction summary.
type PlanningService struct {
	Deps
}

func NewPlanningService(d Deps) *PlanningService {
	return &PlanningService{Deps: d}
}

// GoalView is a goal with its progress percentage.
type GoalView struct {
	core.Goal
	ProgressPercentage decimal.Decimal `json:"progress_percentage"`
}

// ProjectNode is a project with its schedule progress, documents and
// sub-projects.
type ProjectNode struct {
	core.Project
	Progress    int                    `json:"progress"`
	Documents   []core.ProjectDocument `json:"documents"`
	SubProjects []ProjectNode          `json:"sub_projects"`
}

// projectTree indexes the owner's projects and documents by parent.
type projectTree struct {
	children map[int64][]core.Project
	docs     map[int64][]core.ProjectDocument
	today    core.Date
}

func NewGoalView(g core.Goal) GoalView {
	return GoalView{Goal: g, ProgressPercentage: g.Progress()}
}

// UpdateProgress adds amount to the goal's current amount.
func (s *PlanningService) UpdateProgress(ctx context.Context, owner string, id int64, amount decimal.Decimal) (GoalView, error) {
	if amount.IsNegative() {
		return GoalView{}, core.Invalid("amount", "Amount must be positive")
	}

	var goal core.Goal
	err := s.Store.Atomic(ctx, func(tx ledger.Tx) error {
		g, err := tx.Goals().Get(ctx, owner, id)
		if err != nil {
			return err
		}
		g.CurrentAmount = core.Round2(g.CurrentAmount.Add(amount))
		if err := tx.Goals().Update(ctx, owner, &g); err != nil {
			return err
		}
		goal = g
		return nil
	})
	if err != nil {
		return GoalView{}, err
	}
	return NewGoalView(goal), nil
}

// ActiveGoals lists goals whose deadline has not passed.
func (s *PlanningService) ActiveGoals(ctx context.Context, owner string) ([]GoalView, error) {
	goals, err := s.Store.Goals().List(ctx, owner, ledger.GoalFilter{DeadlineFrom: s.Clock.Today()})
	if err != nil {
		return nil, err
	}
	out := make([]GoalView, 0, len(goals))
	for _, g := range goals {
		out = append(out, NewGoalView(g))
	}
	return out, nil
}

func (s *PlanningService) CreateProject(ctx context.Context, owner string, p *core.Project) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return s.Store.Atomic(ctx, func(tx ledger.Tx) error {
		if err := checkParentProject(ctx, tx, owner, p); err != nil {
			return err
		}
		return tx.Projects().Create(ctx, owner, p)
	})
}

func (s *PlanningService) UpdateProject(ctx context.Context, owner string, p *core.Project) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return s.Store.Atomic(ctx, func(tx ledger.Tx) error {
		if err := checkParentProject(ctx, tx, owner, p); err != nil {
			return err
		}
		return tx.Projects().Update(ctx, owner, p)
	})
}

// Projects returns the top-level projects with their sub-projects nested.
func (s *PlanningService) Projects(ctx context.Context, owner string) ([]ProjectNode, error) {
	all, tree, err := s.projectTree(ctx, owner)
	if err != nil {
		return nil, err
	}
	roots := []ProjectNode{}
	for _, p := range all {
		if p.ParentID == nil {
			roots = append(roots, tree.node(p))
		}
	}
	return roots, nil
}

// Project resolves one project with its sub-projects.
func (s *PlanningService) Project(ctx context.Context, owner string, id int64) (ProjectNode, error) {
	all, tree, err := s.projectTree(ctx, owner)
	if err != nil {
		return ProjectNode{}, err
	}
	for _, p := range all {
		if p.ID == id {
			return tree.node(p), nil
		}
	}
	return ProjectNode{}, core.NotFound("project", id)
}

func (s *PlanningService) projectTree(ctx context.Context, owner string) ([]core.Project, projectTree, error) {
	all, err := s.Store.Projects().List(ctx, owner, ledger.ProjectFilter{})
	if err != nil {
		return nil, projectTree{}, err
	}
	docs, err := s.Store.Documents().List(ctx, owner, ledger.DocumentFilter{})
	if err != nil {
		return nil, projectTree{}, err
	}
	tree := projectTree{
		children: map[int64][]core.Project{},
		docs:     map[int64][]core.ProjectDocument{},
		today:    s.Clock.Today(),
	}
	for _, p := range all {
		if p.ParentID != nil {
			tree.children[*p.ParentID] = append(tree.children[*p.ParentID], p)
		}
	}
	for _, d := range docs {
		tree.docs[d.ProjectID] = append(tree.docs[d.ProjectID], d)
	}
	return all, tree, nil
}

func (t projectTree) node(p core.Project) ProjectNode {
	node := ProjectNode{
		Project:     p,
		Progress:    p.Progress(t.today),
		Documents:   []core.ProjectDocument{},
		SubProjects: []ProjectNode{},
	}
	node.Documents = append(node.Documents, t.docs[p.ID]...)
	for _, c := range t.children[p.ID] {
		node.SubProjects = append(node.SubProjects, t.node(c))
	}
	return node
}

func checkParentProject(ctx context.Context, tx ledger.Tx, owner string, p *core.Project) error {
	seen := map[int64]bool{}
	if p.ID != 0 {
		seen[p.ID] = true
	}
	for id := p.ParentID; id != nil; {
		if seen[*id] {
			return core.Invalid("parent_project", "a project cannot be its own ancestor")
		}
		seen[*id] = true
		parent, err := tx.Projects().Get(ctx, owner, *id)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return core.Invalid("parent_project", "parent project does not exist")
			}
			return err
		}
		id = parent.ParentID
	}
	return nil
}

// TransactionSummary totals the owner's transactions matching f.
func (s *PlanningService) TransactionSummary(ctx context.Context, owner string, f ledger.TransactionFilter) (core.TransactionSummary, error) {
	txs, err := s.Store.Transactions().List(ctx, owner, f)
	if err != nil {
		return core.TransactionSummary{}, err
	}
	return core.SummarizeTransactions(txs), nil
}
