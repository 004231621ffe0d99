package client

import (
	"context"
	"fmt"

	"github.com/rexliu/wvrpc/pkg/protocol"
)

func expect[T protocol.Value](v protocol.Value, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected result %T", v)
	}
	return t, nil
}

func (c *Client) GetVersion(ctx context.Context) (string, error) {
	v, err := expect[protocol.StringValue](c.call(ctx, protocol.GetVersion{ID: c.NextID()}))
	return string(v), err
}

func (c *Client) Eval(ctx context.Context, js string) error {
	_, err := c.call(ctx, protocol.Eval{ID: c.NextID(), JS: js})
	return err
}

func (c *Client) SetTitle(ctx context.Context, title string) error {
	_, err := c.call(ctx, protocol.SetTitle{ID: c.NextID(), Title: title})
	return err
}

func (c *Client) GetTitle(ctx context.Context) (string, error) {
	v, err := expect[protocol.StringValue](c.call(ctx, protocol.GetTitle{ID: c.NextID()}))
	return string(v), err
}

func (c *Client) SetVisibility(ctx context.Context, visible bool) error {
	_, err := c.call(ctx, protocol.SetVisibility{ID: c.NextID(), Visible: visible})
	return err
}

func (c *Client) IsVisible(ctx context.Context) (bool, error) {
	v, err := expect[protocol.BoolValue](c.call(ctx, protocol.IsVisible{ID: c.NextID()}))
	return bool(v), err
}

func (c *Client) OpenDevTools(ctx context.Context) error {
	_, err := c.call(ctx, protocol.OpenDevTools{ID: c.NextID()})
	return err
}

// GetSize returns the inner size, or the outer size with includeDecorations.
func (c *Client) GetSize(ctx context.Context, includeDecorations bool) (protocol.SizeValue, error) {
	return expect[protocol.SizeValue](c.call(ctx, protocol.GetSize{ID: c.NextID(), IncludeDecorations: &includeDecorations}))
}

func (c *Client) SetSize(ctx context.Context, width, height float64) error {
	_, err := c.call(ctx, protocol.SetSize{ID: c.NextID(), Size: protocol.Size{Width: width, Height: height}})
	return err
}

// Fullscreen sets fullscreen, or toggles it when on is nil. Maximize and
// Minimize behave the same way.
func (c *Client) Fullscreen(ctx context.Context, on *bool) error {
	_, err := c.call(ctx, protocol.Fullscreen{ID: c.NextID(), Fullscreen: on})
	return err
}

func (c *Client) Maximize(ctx context.Context, on *bool) error {
	_, err := c.call(ctx, protocol.Maximize{ID: c.NextID(), Maximized: on})
	return err
}

func (c *Client) Minimize(ctx context.Context, on *bool) error {
	_, err := c.call(ctx, protocol.Minimize{ID: c.NextID(), Minimized: on})
	return err
}

// LoadHTML shows html. A nil origin keeps the current one.
func (c *Client) LoadHTML(ctx context.Context, html string, origin *string) error {
	_, err := c.call(ctx, protocol.LoadHTML{ID: c.NextID(), HTML: html, Origin: origin})
	return err
}

func (c *Client) LoadURL(ctx context.Context, url string, headers map[string]string) error {
	_, err := c.call(ctx, protocol.LoadURL{ID: c.NextID(), URL: url, Headers: headers})
	return err
}
