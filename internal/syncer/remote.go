package syncer

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// putScript stores a document only when its version is strictly newer than
// the one already held remotely. It returns 1 when the document was written
// and 0 when the remote copy won.
var putScript = redis.NewScript(`
    local id = ARGV[1]
    local version = tonumber(ARGV[2])
    local current = redis.call('HGET', KEYS[2], id)
    if current and tonumber(current) >= version then
        return 0
    end
    redis.call('HSET', KEYS[1], id, ARGV[3])
    redis.call('HSET', KEYS[2], id, ARGV[2])
    return 1
`)

// Remote is the Redis document store. For each collection and user it keeps
// two hashes keyed by document id: one with the JSON payload and one with
// the version counter.
type Remote struct {
	rdb    *redis.Client
	prefix string
}

func NewRemote(rdb *redis.Client, prefix string) *Remote {
	if prefix == "" {
		prefix = "ms"
	}
	return &Remote{rdb: rdb, prefix: prefix}
}

func (r *Remote) docKey(collection string, userID uint64) string {
	return fmt.Sprintf("%s:doc:%s:%d", r.prefix, collection, userID)
}

func (r *Remote) verKey(collection string, userID uint64) string {
	return fmt.Sprintf("%s:ver:%s:%d", r.prefix, collection, userID)
}

// Put writes d unless the remote copy has the same or a newer version.
func (r *Remote) Put(ctx context.Context, collection string, userID uint64, d Doc) (bool, error) {
	keys := []string{r.docKey(collection, userID), r.verKey(collection, userID)}
	n, err := putScript.Run(ctx, r.rdb, keys, d.ID, d.Version, string(d.Payload)).Int()
	if err != nil {
		return false, fmt.Errorf("put %s/%s: %w", collection, d.ID, err)
	}
	return n == 1, nil
}

// Versions returns the remote version of every document of the user.
func (r *Remote) Versions(ctx context.Context, collection string, userID uint64) (map[string]int64, error) {
	raw, err := r.rdb.HGetAll(ctx, r.verKey(collection, userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("versions %s: %w", collection, err)
	}
	out := make(map[string]int64, len(raw))
	for id, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("versions %s/%s: %w", collection, id, err)
		}
		out[id] = n
	}
	return out, nil
}

// Get loads the listed documents. Ids missing remotely are skipped.
func (r *Remote) Get(ctx context.Context, collection string, userID uint64, ids []string) ([]Doc, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	pipe := r.rdb.Pipeline()
	docs := pipe.HMGet(ctx, r.docKey(collection, userID), ids...)
	vers := pipe.HMGet(ctx, r.verKey(collection, userID), ids...)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("get %s: %w", collection, err)
	}
	payloads, versions := docs.Val(), vers.Val()
	out := make([]Doc, 0, len(ids))
	for i, id := range ids {
		p, ok := payloads[i].(string)
		if !ok {
			continue
		}
		vs, ok := versions[i].(string)
		if !ok {
			continue
		}
		v, err := strconv.ParseInt(vs, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
		}
		out = append(out, Doc{ID: id, Version: v, Payload: []byte(p)})
	}
	return out, nil
}
