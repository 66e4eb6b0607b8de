package cull

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/kenneth/cyphertite-go/internal/ctxerr"
	"github.com/kenneth/cyphertite-go/internal/rpc"
	"github.com/kenneth/cyphertite-go/internal/wire"
)

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

type scriptedTransport struct {
	calls []wire.Opcode
	names []string
}

func (s *scriptedTransport) RoundTrip(ctx context.Context, req rpc.Request) (rpc.Request, error) {
	s.calls = append(s.calls, req.Header.Opcode)
	switch req.Header.Opcode {
	case wire.OpXMLList:
		body, _ := json.Marshal(rpc.ListReply{Names: s.names})
		return rpc.Request{Header: wire.Header{Status: wire.StatusOK}, Body: body}, nil
	default:
		return rpc.Request{Header: wire.Header{Status: wire.StatusOK}}, nil
	}
}

type fakeFetcher struct {
	bodies map[string][]byte
}

func (f *fakeFetcher) FetchCtfile(name string) ([]byte, error) {
	return f.bodies[name], nil
}

type fakeParser struct {
	shas     map[string][]string
	previous map[string]string
}

func (f *fakeParser) ParseChunkSHAs(body []byte, encrypted bool) ([]string, error) {
	return f.shas[string(body)], nil
}

func (f *fakeParser) ParsePrevious(body []byte) (string, bool) {
	prev, ok := f.previous[string(body)]
	return prev, ok
}

func mustParseTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("time.Parse failed: %v", err)
	}
	return parsed
}

func cookedName(when time.Time, suffix string) string {
	return when.Format(cutoffLayout) + "-" + suffix
}

func TestEngineKickRunsAllSixSteps(t *testing.T) {
	now := time.Now()
	alpha := cookedName(now, "alpha.ctfile")
	beta := cookedName(now, "beta.ctfile")

	transport := &scriptedTransport{names: []string{alpha, beta}}
	client := rpc.NewClient(transport, jsonCodec{})

	fetcher := &fakeFetcher{bodies: map[string][]byte{
		alpha: []byte("alpha-body"),
		beta:  []byte("beta-body"),
	}}
	parser := &fakeParser{shas: map[string][]string{
		"alpha-body": {"sha-1", "sha-2"},
		"beta-body":  {"sha-2", "sha-3"},
	}}

	engine := NewEngine(client, fetcher, parser, 30, nil, nil)
	if err := engine.Kick(context.Background()); err != nil {
		t.Fatalf("Kick failed: %v", err)
	}

	wantOps := []wire.Opcode{
		wire.OpXMLList,
		wire.OpXMLCullSetup,
		wire.OpXMLCullShas,
		wire.OpXMLCullComplete,
	}
	if len(transport.calls) != len(wantOps) {
		t.Fatalf("call sequence = %v, want %v", transport.calls, wantOps)
	}
	for i, op := range wantOps {
		if transport.calls[i] != op {
			t.Errorf("call[%d] = %v, want %v", i, transport.calls[i], op)
		}
	}

	if engine.chunks.Len() != 0 {
		t.Errorf("chunk set len = %d after Kick, want 0 (drained by sendShas)", engine.chunks.Len())
	}
}

func TestEngineKickRejectsZeroKeepDays(t *testing.T) {
	transport := &scriptedTransport{}
	client := rpc.NewClient(transport, jsonCodec{})
	engine := NewEngine(client, &fakeFetcher{}, &fakeParser{}, 0, nil, nil)

	err := engine.Kick(context.Background())
	if err == nil {
		t.Fatal("expected error for keep_days=0")
	}
	if !ctxerr.Is(err, ctxerr.KindConfig) {
		t.Errorf("error kind = %v, want Config", err)
	}
	if len(transport.calls) != 0 {
		t.Error("keep_days=0 should fail before any network call")
	}
}

func TestEngineKickAbortsWhenEverythingIsOld(t *testing.T) {
	now := mustParseTime(t, "2026-07-31T00:00:00Z")
	old := cookedName(now.AddDate(0, 0, -30), "old.ctfile")

	transport := &scriptedTransport{names: []string{old}}
	client := rpc.NewClient(transport, jsonCodec{})
	engine := NewEngine(client, &fakeFetcher{bodies: map[string][]byte{old: []byte("old-body")}},
		&fakeParser{shas: map[string][]string{"old-body": {"sha-1"}}}, 7, nil, nil)

	err := engine.Kick(context.Background())
	if err == nil {
		t.Fatal("expected cull to abort when every ctfile is old")
	}
	if !ctxerr.Is(err, ctxerr.KindConfig) {
		t.Errorf("error kind = %v, want Config", err)
	}

	for _, op := range transport.calls {
		if op == wire.OpXMLDelete || op == wire.OpXMLCullSetup || op == wire.OpXMLCullShas {
			t.Errorf("call %v issued, want cull aborted before any delete or cull rpc", op)
		}
	}
}

func TestEngineCollectAppliesRetentionCutoff(t *testing.T) {
	engine := NewEngine(nil, nil, nil, 7, nil, nil)
	now := mustParseTime(t, "2026-07-31T00:00:00Z")

	recent := cookedName(now.AddDate(0, 0, -1), "recent")
	old := cookedName(now.AddDate(0, 0, -30), "old")
	descriptors := []CtfileDescriptor{{Name: recent}, {Name: old}}

	records, err := engine.collect(descriptors, now)
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if !records[recent].keep() {
		t.Error("recent ctfile should be tentatively kept")
	}
	if records[old].keep() {
		t.Error("old ctfile should be tentatively culled")
	}
}

func TestEngineCollectRejectsWhenNoneKept(t *testing.T) {
	engine := NewEngine(nil, nil, nil, 7, nil, nil)
	now := mustParseTime(t, "2026-07-31T00:00:00Z")

	descriptors := []CtfileDescriptor{
		{Name: cookedName(now.AddDate(0, 0, -30), "old-a")},
		{Name: cookedName(now.AddDate(0, 0, -60), "old-b")},
	}

	if _, err := engine.collect(descriptors, now); err == nil {
		t.Fatal("expected abort error when no ctfile survives the cutoff")
	}
}

func TestEngineResolveChainUpgradesReferencedPredecessor(t *testing.T) {
	now := mustParseTime(t, "2024-07-01T00:00:00Z")
	nameA := cookedName(mustParseTime(t, "2024-01-01T00:00:00Z"), "A")
	nameB := cookedName(mustParseTime(t, "2024-06-01T00:00:00Z"), "B")
	nameC := cookedName(mustParseTime(t, "2023-01-01T00:00:00Z"), "C")

	engine := NewEngine(nil, nil, nil, 30, nil, nil)
	descriptors := []CtfileDescriptor{
		{Name: nameA},
		{Name: nameB, Previous: nameA},
		{Name: nameC},
	}

	records, err := engine.collect(descriptors, now)
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	survivors := engine.resolveChain(records)

	survived := map[string]bool{}
	for _, s := range survivors {
		survived[s.Name] = true
	}
	if !survived[nameB] {
		t.Error("B should be kept directly (within keep_days window)")
	}
	if !survived[nameA] {
		t.Error("A should be upgraded to kept via B's previous chain")
	}
	if survived[nameC] {
		t.Error("C has no referent and should be culled")
	}
}

func TestEngineSendShasDrainsSetAndMarksEof(t *testing.T) {
	set := NewChunkSet()
	set.Mark("sha-1")
	set.Mark("sha-2")

	transport := &scriptedTransport{}
	client := rpc.NewClient(transport, jsonCodec{})
	engine := NewEngine(client, nil, nil, 7, nil, set)

	if err := engine.sendShas(context.Background(), "cull-uuid"); err != nil {
		t.Fatalf("sendShas failed: %v", err)
	}
	if engine.chunks.Len() != 0 {
		t.Errorf("chunk set len = %d after sendShas, want 0 (drained)", engine.chunks.Len())
	}
}

func TestEngineSendShasSendsNothingWhenSetEmpty(t *testing.T) {
	transport := &scriptedTransport{}
	client := rpc.NewClient(transport, jsonCodec{})
	engine := NewEngine(client, nil, nil, 7, nil, nil)

	if err := engine.sendShas(context.Background(), "cull-uuid"); err != nil {
		t.Fatalf("sendShas failed: %v", err)
	}
	if len(transport.calls) != 0 {
		t.Errorf("calls = %v, want none for an empty chunk set", transport.calls)
	}
}
