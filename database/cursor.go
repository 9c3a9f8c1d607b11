package database

import (
	"context"

	"event-ticketing/model"

	"go.mongodb.org/mongo-driver/mongo"
)

type sliceCursor struct {
	items []model.AttendeeSummary
	pos   int
}

func newSliceCursor(items []model.AttendeeSummary) *sliceCursor {
	return &sliceCursor{items: items, pos: -1}
}

func (c *sliceCursor) Next(ctx context.Context) bool {
	if ctx.Err() != nil || c.pos+1 >= len(c.items) {
		c.pos = len(c.items)
		return false
	}
	c.pos++
	return true
}

func (c *sliceCursor) Current() model.AttendeeSummary {
	if c.pos < 0 || c.pos >= len(c.items) {
		return model.AttendeeSummary{}
	}
	return c.items[c.pos]
}

func (c *sliceCursor) Err() error {
	return nil
}

func (c *sliceCursor) Close(context.Context) error {
	c.items = nil
	return nil
}

type mongoCursor struct {
	cur     *mongo.Cursor
	current model.AttendeeSummary
	err     error
}

func (c *mongoCursor) Next(ctx context.Context) bool {
	if c.err != nil || !c.cur.Next(ctx) {
		return false
	}
	var doc summaryDoc
	if err := c.cur.Decode(&doc); err != nil {
		c.err = err
		return false
	}
	c.current = doc.model()
	return true
}

func (c *mongoCursor) Current() model.AttendeeSummary {
	return c.current
}

func (c *mongoCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.cur.Err()
}

func (c *mongoCursor) Close(ctx context.Context) error {
	return c.cur.Close(ctx)
}
