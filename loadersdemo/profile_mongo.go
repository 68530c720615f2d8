package loadersdemo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/everyday-items/loadq/infra/db/mongodb"
	"github.com/everyday-items/loadq/loader"
)

const profileHandlerClass loader.HandlerClass = "mongo_profile"

// Profile is the document shape returned by LoadProfile.
type Profile struct {
	ID  string `bson:"_id"`
	Bio string `bson:"bio"`
}

// LoadProfile is a pending fetch of one profile document by id.
type LoadProfile struct {
	loader.Base
	ID string
}

func (f *LoadProfile) HandlerClass() loader.HandlerClass { return profileHandlerClass }
func (f *LoadProfile) InstanceKey() loader.InstanceKey   { return loader.InstanceKey(f.ID) }

// NewLoadProfile injects a LoadProfile(id) future into q.
func NewLoadProfile(q *loader.Queue, id string) *LoadProfile {
	return loader.Inject(q, &LoadProfile{ID: id})
}

// MongoHandler resolves LoadProfile futures with one `$in` query per
// group against a single collection.
type MongoHandler struct {
	Client     *mongodb.Client
	Collection string
	ctx        context.Context
}

// NewMongoHandler builds a handler bound to client's "profiles"-like
// collection, given by collection.
func NewMongoHandler(ctx context.Context, client *mongodb.Client, collection string) *MongoHandler {
	return &MongoHandler{Client: client, Collection: collection, ctx: ctx}
}

func (h *MongoHandler) SatisfyMulti(group map[loader.InstanceKey]loader.Queueable, _ loader.BatchingKey) error {
	ids := make([]string, 0, len(group))
	for ik := range group {
		ids = append(ids, string(ik))
	}

	cur, err := h.Client.Coll(h.Collection).Find(h.ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return err
	}
	defer cur.Close(h.ctx)

	found := make(map[string]bool, len(ids))
	for cur.Next(h.ctx) {
		var p Profile
		if err := cur.Decode(&p); err != nil {
			return err
		}
		found[p.ID] = true
		if f, ok := group[loader.InstanceKey(p.ID)]; ok {
			if err := f.Satisfy(p); err != nil {
				return err
			}
		}
	}
	if err := cur.Err(); err != nil {
		return err
	}

	for ik, f := range group {
		if !found[string(ik)] {
			if err := f.Satisfy(nil); err != nil {
				return err
			}
		}
	}
	return nil
}
