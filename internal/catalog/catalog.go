// Package catalog manages the question templates the elicitation
// engine draws from. The catalog is process-wide read-mostly
// configuration: loaded once at startup and passed explicitly, never
// mutated during a session.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/harry720320/account-plan-agent/internal/model"
	"github.com/harry720320/account-plan-agent/internal/store"
)

// Catalog is an ordered, read-only view of the question templates.
type Catalog struct {
	templates []*model.QuestionTemplate
}

// Load reads all templates from the store in catalog order.
func Load(st *store.Store) (*Catalog, error) {
	templates, err := st.ListTemplates()
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return &Catalog{templates: templates}, nil
}

// New builds a catalog directly from templates, preserving order.
func New(templates []*model.QuestionTemplate) *Catalog {
	return &Catalog{templates: templates}
}

// Templates returns every template, active or not, in catalog order.
func (c *Catalog) Templates() []*model.QuestionTemplate {
	return c.templates
}

// Active returns the active templates in catalog order.
func (c *Catalog) Active() []*model.QuestionTemplate {
	var active []*model.QuestionTemplate
	for _, t := range c.templates {
		if t.Active {
			active = append(active, t)
		}
	}
	return active
}

// ActiveCategories returns the categories with at least one active
// template, in catalog order, deduplicated.
func (c *Catalog) ActiveCategories() []model.Category {
	seen := make(map[model.Category]bool)
	var categories []model.Category
	for _, t := range c.Active() {
		if !seen[t.Category] {
			seen[t.Category] = true
			categories = append(categories, t.Category)
		}
	}
	return categories
}

// First returns the first active template for a category, or nil.
func (c *Catalog) First(category model.Category) *model.QuestionTemplate {
	for _, t := range c.Active() {
		if t.Category == category {
			return t
		}
	}
	return nil
}

// DefaultTemplates returns the built-in core questions.
func DefaultTemplates() []*model.QuestionTemplate {
	return []*model.QuestionTemplate{
		{
			Category: model.CategoryCooperationHistory,
			Question: "What cooperation projects have you had with this company in the past?",
			IsCore:   true,
			FollowUps: []string{
				"What is the specific time range of the cooperation projects?",
				"What is the scale and value of the projects?",
				"Were the projects completed successfully?",
			},
			Rank:   1,
			Active: true,
		},
		{
			Category: model.CategoryProductsServices,
			Question: "What products or services have you sold?",
			IsCore:   true,
			FollowUps: []string{
				"How is the sales performance of these products?",
				"What is the customer feedback on the products?",
				"Are there any repeat purchases?",
			},
			Rank:   2,
			Active: true,
		},
		{
			Category: model.CategoryChallenges,
			Question: "What challenges or issues have you encountered in cooperation?",
			IsCore:   true,
			FollowUps: []string{
				"How were these issues resolved?",
				"Are there any unresolved issues?",
				"What impact do these issues have on the cooperation relationship?",
			},
			Rank:   3,
			Active: true,
		},
		{
			Category: model.CategoryKeyContacts,
			Question: "Who are the key contacts?",
			IsCore:   true,
			FollowUps: []string{
				"What are the positions and influence of these contacts?",
				"What is the relationship with them?",
				"Who is the most important decision maker?",
			},
			Rank:   4,
			Active: true,
		},
		{
			Category: model.CategoryFuturePlans,
			Question: "What are the next cooperation plans?",
			IsCore:   true,
			FollowUps: []string{
				"What is the timeline of the plan?",
				"What is the expected cooperation scale?",
				"What resource support is needed?",
			},
			Rank:   5,
			Active: true,
		},
		{
			Category: model.CategoryResourceNeeds,
			Question: "Are there any missing support or resources currently?",
			IsCore:   true,
			FollowUps: []string{
				"How important are these resources to cooperation?",
				"How can these resources be obtained?",
				"Are there any alternatives?",
			},
			Rank:   6,
			Active: true,
		},
	}
}

// Seed writes the built-in templates plus any file-provided extras to
// the store. Existing templates with the same question text are kept.
func Seed(st *store.Store, cfg model.CatalogConfig) error {
	templates := DefaultTemplates()
	if cfg.File != "" {
		extra, err := LoadFile(cfg.File)
		if err != nil {
			return err
		}
		templates = append(templates, extra...)
	}
	for _, t := range templates {
		if err := st.SaveTemplate(t); err != nil {
			return fmt.Errorf("seed template %q: %w", t.Question, err)
		}
	}
	return nil
}

type fileTemplate struct {
	Category    string   `yaml:"category"`
	Question    string   `yaml:"question"`
	Description string   `yaml:"description"`
	Core        bool     `yaml:"core"`
	FollowUps   []string `yaml:"follow_ups"`
	Rank        int      `yaml:"rank"`
	Inactive    bool     `yaml:"inactive"`
}

type catalogFile struct {
	Templates []fileTemplate `yaml:"templates"`
}

// LoadFile parses additional templates from a YAML file. Categories
// must come from the recognized set.
func LoadFile(path string) ([]*model.QuestionTemplate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}

	var templates []*model.QuestionTemplate
	for i, ft := range file.Templates {
		category, err := model.ParseCategory(ft.Category)
		if err != nil {
			return nil, fmt.Errorf("catalog file entry %d: %w", i+1, err)
		}
		if ft.Question == "" {
			return nil, model.Validationf("catalog file entry %d: question text is required", i+1)
		}
		templates = append(templates, &model.QuestionTemplate{
			Category:    category,
			Question:    ft.Question,
			Description: ft.Description,
			IsCore:      ft.Core,
			FollowUps:   ft.FollowUps,
			Rank:        ft.Rank,
			Active:      !ft.Inactive,
		})
	}
	return templates, nil
}
