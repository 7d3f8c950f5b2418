package main

import (
	"fmt"
	"time"

	"github.com/fwojciec/refinery"
	"gopkg.in/yaml.v3"
)

// recordView is the YAML form of a published record.
type recordView struct {
	ID          string  `yaml:"id"`
	Title       *string `yaml:"title,omitempty"`
	StartTime   *string `yaml:"start_time,omitempty"`
	Location    *string `yaml:"location,omitempty"`
	Organizer   *string `yaml:"organizer,omitempty"`
	Price       *string `yaml:"price,omitempty"`
	SourceURL   *string `yaml:"source_url,omitempty"`
	Description *string `yaml:"description,omitempty"`
	Overall     float64 `yaml:"overall"`
	Created     string  `yaml:"created"`
	Updated     string  `yaml:"updated"`
}

// Run executes the show command.
func (c *ShowCmd) Run(deps *Dependencies) error {
	rec, err := deps.Records.FindRecordByID(deps.Ctx, c.ID)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", refinery.ErrorMessage(err))
		return err
	}

	r := rec.Record
	if r == nil {
		r = &refinery.EventRecord{}
	}
	out, err := yaml.Marshal(recordView{
		ID:          rec.ID,
		Title:       r.Title,
		StartTime:   r.StartTime,
		Location:    r.Location,
		Organizer:   r.Organizer,
		Price:       r.Price,
		SourceURL:   r.SourceURL,
		Description: r.Description,
		Overall:     rec.Overall,
		Created:     rec.CreatedAt.Format(time.RFC3339),
		Updated:     rec.UpdatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	_, err = deps.Stdout.Write(out)
	return err
}
