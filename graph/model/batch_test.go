package model

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

// echoClient answers each prompt with its user text, failing prompts that
// contain "fail".
type echoClient struct {
	mu    sync.Mutex
	calls int
}

func (c *echoClient) Invoke(ctx context.Context, system, user string) (string, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if strings.Contains(user, "fail") {
		return "", errors.New("scripted failure")
	}
	return "echo:" + user, nil
}

func (c *echoClient) InvokeStructured(ctx context.Context, system, user string, schema map[string]interface{}, out interface{}) error {
	return errors.New("not used")
}

func (c *echoClient) InvokeWithTools(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error) {
	return ChatOut{}, errors.New("not used")
}

func TestInvokeBatchPreservesOrder(t *testing.T) {
	client := &echoClient{}
	prompts := []BatchPrompt{
		{User: "one"},
		{User: "two"},
		{User: "three"},
		{User: "four"},
		{User: "five"},
	}

	results := InvokeBatch(context.Background(), client, prompts, 2)
	if len(results) != len(prompts) {
		t.Fatalf("results = %d, want %d", len(results), len(prompts))
	}
	for i, prompt := range prompts {
		if results[i].Err != nil {
			t.Errorf("prompt %d failed: %v", i, results[i].Err)
		}
		if results[i].Text != "echo:"+prompt.User {
			t.Errorf("result %d = %q", i, results[i].Text)
		}
	}
	if client.calls != len(prompts) {
		t.Errorf("calls = %d", client.calls)
	}
}

func TestInvokeBatchIsolatesFailures(t *testing.T) {
	client := &echoClient{}
	prompts := []BatchPrompt{
		{User: "ok-1"},
		{User: "please fail"},
		{User: "ok-2"},
	}

	results := InvokeBatch(context.Background(), client, prompts, 4)
	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("healthy prompts failed: %v / %v", results[0].Err, results[2].Err)
	}
	if results[1].Err == nil {
		t.Error("failing prompt reported success")
	}
	if results[0].Text != "echo:ok-1" || results[2].Text != "echo:ok-2" {
		t.Errorf("results = %+v", results)
	}
}

func TestInvokeBatchEmpty(t *testing.T) {
	results := InvokeBatch(context.Background(), &echoClient{}, nil, 0)
	if len(results) != 0 {
		t.Errorf("results = %v", results)
	}
}
