package cull

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kenneth/cyphertite-go/internal/ctxerr"
	"github.com/kenneth/cyphertite-go/internal/rpc"
)

// shaBatchSize bounds how many live SHAs are sent per cull_shas
// transaction, keeping any single control-plane message body bounded.
const shaBatchSize = 1024

// cutoffLayout is strftime("%Y%m%d-%H%M%S", ...)'s Go equivalent: the date
// prefix every cooked ctfile name begins with, compared lexicographically
// against the retention cutoff (ct_cull_collect_ctfiles,
// ct_ctfile_mode.c:1023-1036).
const cutoffLayout = "20060102-150405"

// Engine drives one cull cycle end to end, composing the six operations
// ct_cull_kick performs in sequence: list, fetch_all_ctfiles,
// collect_ctfiles, setup, send_shas, send_complete.
type Engine struct {
	Client  *rpc.Client
	Fetcher Fetcher
	Parser  ChunkParser
	Log     *logrus.Entry

	// KeepDays is the retention window: ctfiles older than now minus
	// KeepDays days are excluded from the surviving set. Zero is
	// rejected — ct_cull_collect_ctfiles treats keep_days==0 as a fatal
	// misconfiguration rather than "keep nothing", since that reading
	// would cull everything on a blank config.
	KeepDays int

	chunks *ChunkSet
}

// NewEngine constructs a cull engine. chunks is an optional caller-supplied
// in-memory set; if nil, a fresh one is used.
func NewEngine(client *rpc.Client, fetcher Fetcher, parser ChunkParser, keepDays int, log *logrus.Entry, chunks *ChunkSet) *Engine {
	if chunks == nil {
		chunks = NewChunkSet()
	}
	return &Engine{Client: client, Fetcher: fetcher, Parser: parser, KeepDays: keepDays, Log: log, chunks: chunks}
}

// cullRecord is one ctfile's mutable keep state across the two collect
// passes, mirroring ct_cull_collect_ctfiles' per-file mlf_keep int: it
// starts at 0 or 1 from the date-prefix cutoff, then the chain walk can
// increment it on ctfiles this descriptor is not itself the "owner" of.
type cullRecord struct {
	desc      CtfileDescriptor
	keepCount int
}

func (r *cullRecord) keep() bool { return r.keepCount > 0 }

// Kick runs one full cull cycle.
func (e *Engine) Kick(ctx context.Context) error {
	if e.KeepDays == 0 {
		return ctxerr.New(ctxerr.KindConfig, "cull.Engine.Kick", errZeroKeepDays)
	}

	cullUUID := uuid.New().String()
	e.chunks.Reset()

	descriptors, err := e.list(ctx)
	if err != nil {
		return err
	}

	bodies, err := e.fetchAll(ctx, descriptors)
	if err != nil {
		return err
	}
	e.populatePrevious(descriptors, bodies)

	records, err := e.collect(descriptors, time.Now())
	if err != nil {
		return err
	}
	survivors := e.resolveChain(records)

	if err := e.markChunks(survivors, bodies); err != nil {
		return err
	}
	if err := e.deleteCulled(ctx, records); err != nil {
		return err
	}

	if err := e.setup(ctx, cullUUID); err != nil {
		return err
	}
	if err := e.sendShas(ctx, cullUUID); err != nil {
		return err
	}
	return e.sendComplete(ctx, cullUUID)
}

func (e *Engine) list(ctx context.Context) ([]CtfileDescriptor, error) {
	reply, err := e.Client.List(ctx, "*")
	if err != nil {
		return nil, err
	}
	descriptors := make([]CtfileDescriptor, 0, len(reply.Names))
	for _, name := range reply.Names {
		descriptors = append(descriptors, CtfileDescriptor{Name: name})
	}
	return descriptors, nil
}

func (e *Engine) fetchAll(ctx context.Context, descriptors []CtfileDescriptor) (map[string][]byte, error) {
	bodies := make(map[string][]byte, len(descriptors))
	for _, d := range descriptors {
		body, err := e.Fetcher.FetchCtfile(d.Name)
		if err != nil {
			return nil, ctxerr.New(ctxerr.KindIO, "cull.Engine.fetchAll", err)
		}
		bodies[d.Name] = body
	}
	return bodies, nil
}

// populatePrevious fills in each descriptor's Previous chain link by
// parsing its already-fetched body, the way ctfile_get_previous resolves
// one ctfile's predecessor from its own on-disk record.
func (e *Engine) populatePrevious(descriptors []CtfileDescriptor, bodies map[string][]byte) {
	for i := range descriptors {
		body, ok := bodies[descriptors[i].Name]
		if !ok {
			continue
		}
		if prev, ok := e.Parser.ParsePrevious(body); ok {
			descriptors[i].Previous = prev
		}
	}
}

// collect applies the retention cutoff the same way
// ct_cull_collect_ctfiles does: a ctfile is tentatively kept iff its
// cooked name's date prefix is not lexicographically older than
// now-KeepDays formatted the same way. If nothing survives, the cull is
// aborted before any delete or chunk mark is issued (spec §4.8 step 3,
// invariant 7, scenario S5) rather than reporting an empty live set to
// the server.
func (e *Engine) collect(descriptors []CtfileDescriptor, now time.Time) (map[string]*cullRecord, error) {
	cutoff := now.Add(-time.Duration(e.KeepDays) * 24 * time.Hour).Format(cutoffLayout)

	records := make(map[string]*cullRecord, len(descriptors))
	kept := 0
	for _, d := range descriptors {
		r := &cullRecord{desc: d}
		if datePrefix(d.Name) < cutoff {
			r.keepCount = 0
		} else {
			r.keepCount = 1
			kept++
		}
		records[d.Name] = r
	}

	if kept == 0 {
		return nil, ctxerr.New(ctxerr.KindConfig, "cull.Engine.collect", errAllCtfilesOld)
	}
	return records, nil
}

// datePrefix returns the leading date-time portion of a cooked ctfile
// name, the same span strncmp(file->mlf_name, buf, timelen) compares.
func datePrefix(name string) string {
	if len(name) > len(cutoffLayout) {
		return name[:len(cutoffLayout)]
	}
	return name
}

// resolveChain walks every initially-kept ctfile's previous chain,
// upgrading any ancestor still marked for deletion into the surviving set
// — ct_cull_collect_ctfiles' second RB_FOREACH pass
// (ct_ctfile_mode.c:1043-1071) — and returns the final surviving
// descriptors (spec §4.8 step 3 bullet 2, invariant 8, scenario S6).
func (e *Engine) resolveChain(records map[string]*cullRecord) []CtfileDescriptor {
	for _, r := range records {
		if !r.keep() {
			continue
		}
		seen := map[string]bool{r.desc.Name: true}
		prev := r.desc.Previous
		for prev != "" && !seen[prev] {
			seen[prev] = true
			prevRec, ok := records[prev]
			if !ok {
				if e.Log != nil {
					e.Log.WithField("previous", prev).Warn("file not found in ctfilelist")
				}
				break
			}
			if !prevRec.keep() && e.Log != nil {
				e.Log.WithField("ctfile", prev).Info("old ctfile still referenced by newer backups, keeping")
			}
			prevRec.keepCount++
			prev = prevRec.desc.Previous
		}
	}

	survivors := make([]CtfileDescriptor, 0, len(records))
	for _, r := range records {
		if r.keep() {
			survivors = append(survivors, r.desc)
		}
	}
	return survivors
}

// deleteCulled enqueues a remote delete for every ctfile collect and
// resolveChain left out of the surviving set, the third RB_FOREACH pass's
// ctfile_delete branch (ct_ctfile_mode.c:1073-1082, spec §4.8 step 3
// bullet 4).
func (e *Engine) deleteCulled(ctx context.Context, records map[string]*cullRecord) error {
	for name, r := range records {
		if r.keep() {
			continue
		}
		if err := e.Client.Delete(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) markChunks(survivors []CtfileDescriptor, bodies map[string][]byte) error {
	for _, d := range survivors {
		body, ok := bodies[d.Name]
		if !ok {
			continue
		}
		shas, err := e.Parser.ParseChunkSHAs(body, d.Encrypted)
		if err != nil {
			return ctxerr.New(ctxerr.KindMalformedSecret, "cull.Engine.markChunks", err)
		}
		for _, sha := range shas {
			e.chunks.Mark(sha)
		}
	}
	return nil
}

func (e *Engine) setup(ctx context.Context, cullUUID string) error {
	return e.Client.CullSetup(ctx, cullUUID)
}

// sendShas drains the live chunk set in batches, mirroring
// ct_cull_send_shas: each call removes the entries it actually sends from
// the set so shacnt always equals the set's size, and the batch that
// empties the set carries eof=1. If the set starts empty, nothing is sent
// at all, matching the original's behavior of never issuing a transaction
// for a zero-length rb-tree.
func (e *Engine) sendShas(ctx context.Context, cullUUID string) error {
	for e.chunks.Len() > 0 {
		batch := e.chunks.Take(shaBatchSize)
		eof := e.chunks.Len() == 0
		if err := e.Client.CullShas(ctx, cullUUID, batch, eof); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) sendComplete(ctx context.Context, cullUUID string) error {
	if err := e.Client.CullComplete(ctx, cullUUID); err != nil {
		return err
	}
	if e.Log != nil {
		e.Log.WithField("cull_uuid", cullUUID).
			Info("cull cycle complete")
	}
	return nil
}
