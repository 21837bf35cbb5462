package main

import (
	"context"
	"encoding/json"

	"github.com/KingRyuK69/AWS-S3-RS-Lambda/internal/dataloader"
)

type handler struct {
	d *dataloader.Dispatcher
}

// handle never fails the invocation itself; the outcome is carried in the response.
func (h *handler) handle(ctx context.Context, payload json.RawMessage) (*dataloader.Response, error) {
	rsp := h.d.Handle(ctx, payload)
	return &rsp, nil
}
