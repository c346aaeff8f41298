package persistence

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/talgya/hexrealm/internal/editor"
	"github.com/talgya/hexrealm/internal/world"
	"github.com/talgya/hexrealm/internal/worldgen"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "realms.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func generated(t *testing.T, seed int64) *world.Realm {
	t.Helper()
	res, err := worldgen.Generate(world.HexShape(4), worldgen.DefaultOptions(), seed)
	if err != nil {
		t.Fatal(err)
	}
	return res.Realm
}

func TestSaveLoadRealm(t *testing.T) {
	db := openTestDB(t)
	r := generated(t, 5)
	seed := int64(5)
	id := NewID()

	if err := db.SaveRealm(Record{ID: id, Name: "Vale", Seed: &seed}, r); err != nil {
		t.Fatal(err)
	}
	back, err := db.LoadRealm(id)
	if err != nil {
		t.Fatal(err)
	}
	if back.HexCount() != r.HexCount() {
		t.Fatalf("loaded %d hexes, want %d", back.HexCount(), r.HexCount())
	}
	for i := range r.Hexes {
		if back.Hexes[i] != r.Hexes[i] {
			t.Fatalf("hex %d: %+v vs %+v", i, back.Hexes[i], r.Hexes[i])
		}
	}

	sum, err := db.GetRealm(id)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Name != "Vale" || sum.Shape != "hex" || sum.Radius != 4 || sum.HexCount != 61 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.Seed == nil || *sum.Seed != 5 {
		t.Fatalf("seed = %v, want 5", sum.Seed)
	}
	if sum.MythCount != len(r.Myths) {
		t.Fatalf("myth count = %d, want %d", sum.MythCount, len(r.Myths))
	}
}

func TestSaveKeepsSeed(t *testing.T) {
	db := openTestDB(t)
	r := generated(t, 9)
	seed := int64(9)
	id := NewID()
	if err := db.SaveRealm(Record{ID: id, Name: "a", Seed: &seed}, r); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveRealm(Record{ID: id, Name: "b", Revision: 3}, r); err != nil {
		t.Fatal(err)
	}
	sum, err := db.GetRealm(id)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Seed == nil || *sum.Seed != 9 || sum.Name != "b" || sum.Revision != 3 {
		t.Fatalf("summary after resave = %+v", sum)
	}
}

func TestMissingRealm(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.LoadRealm("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LoadRealm: %v", err)
	}
	if _, err := db.GetRealm("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetRealm: %v", err)
	}
	if err := db.DeleteRealm("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("DeleteRealm: %v", err)
	}
}

func TestListAndDelete(t *testing.T) {
	db := openTestDB(t)
	if list, err := db.ListRealms(); err != nil || len(list) != 0 {
		t.Fatalf("empty list = %v, %v", list, err)
	}

	a, b := NewID(), NewID()
	if err := db.SaveRealm(Record{ID: a, Name: "a"}, generated(t, 1)); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveRealm(Record{ID: b, Name: "b"}, generated(t, 2)); err != nil {
		t.Fatal(err)
	}
	list, err := db.ListRealms()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("listed %d realms, want 2", len(list))
	}

	if err := db.DeleteRealm(a); err != nil {
		t.Fatal(err)
	}
	list, _ = db.ListRealms()
	if len(list) != 1 || list[0].ID != b {
		t.Fatalf("after delete = %+v", list)
	}
}

func TestSaveSessionLogsChanges(t *testing.T) {
	db := openTestDB(t)
	id := NewID()
	r, err := world.NewRealm(world.HexShape(2), world.TerrainPlain)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SaveRealm(Record{ID: id, Name: "Fen"}, r); err != nil {
		t.Fatal(err)
	}
	s := editor.NewSession(id, r.Clone())
	edits := []editor.Edit{
		{Op: editor.OpTerrain, Q: 0, R: 0, Terrain: world.TerrainLake},
		{Op: editor.OpBarrier, Q: 0, R: 0, Edge: 1},
		{Op: editor.OpAddMyth, Q: 1, R: 0},
	}
	for _, e := range edits {
		if _, err := s.Apply(e); err != nil {
			t.Fatal(err)
		}
	}

	rev, err := db.SaveSession(s)
	if err != nil {
		t.Fatal(err)
	}
	if rev != 3 {
		t.Fatalf("saved revision %d, want 3", rev)
	}
	changes, err := db.RecentChanges(id, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 3 || changes[0].Revision != 3 || changes[0].Op != string(editor.OpAddMyth) {
		t.Fatalf("changes = %+v", changes)
	}
	if changes[1].Hexes != 2 {
		t.Fatalf("barrier change touched %d hexes, want 2", changes[1].Hexes)
	}

	if _, err := s.Apply(editor.Edit{Op: editor.OpTerrain, Q: 1, R: 1, Terrain: world.TerrainHill}); err != nil {
		t.Fatal(err)
	}
	if rev, err = db.SaveSession(s); err != nil || rev != 4 {
		t.Fatalf("second save = %d, %v", rev, err)
	}
	if sum, err := db.GetRealm(id); err != nil || sum.Name != "Fen" {
		t.Fatalf("name after session save = %+v, %v", sum, err)
	}
	changes, _ = db.RecentChanges(id, 10)
	if len(changes) != 4 {
		t.Fatalf("logged %d changes after second save, want 4", len(changes))
	}

	loaded, err := db.LoadRealm(id)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Get(world.HexCoord{}).Terrain != world.TerrainLake || len(loaded.Myths) != 1 {
		t.Fatalf("loaded realm missing edits: %s", loaded)
	}

	if err := db.DeleteRealm(id); err != nil {
		t.Fatal(err)
	}
	if changes, _ := db.RecentChanges(id, 10); len(changes) != 0 {
		t.Fatalf("change log survived delete: %+v", changes)
	}
}

func TestSaveSessionLogsEveryEdit(t *testing.T) {
	db := openTestDB(t)
	id := NewID()
	r, err := world.NewRealm(world.HexShape(2), world.TerrainPlain)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SaveRealm(Record{ID: id, Name: "Weald"}, r); err != nil {
		t.Fatal(err)
	}
	s := editor.NewSession(id, r.Clone())
	const edits = 100
	for i := 0; i < edits; i++ {
		if _, err := s.Apply(editor.Edit{Op: editor.OpBarrier, Q: 0, R: 0, Edge: world.Edge(i % 6)}); err != nil {
			t.Fatal(err)
		}
	}

	if rev, err := db.SaveSession(s); err != nil || rev != edits {
		t.Fatalf("save = %d, %v", rev, err)
	}
	changes, err := db.RecentChanges(id, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != edits || changes[0].Revision != edits || changes[edits-1].Revision != 1 {
		t.Fatalf("logged %d changes, want %d covering every revision", len(changes), edits)
	}
	if s.Dirty() {
		t.Fatal("session dirty after a successful save")
	}
}

func TestSaveSessionDoesNotRecreateDeletedRealm(t *testing.T) {
	db := openTestDB(t)
	id := NewID()
	r, err := world.NewRealm(world.HexShape(1), world.TerrainPlain)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SaveRealm(Record{ID: id, Name: "Lost"}, r); err != nil {
		t.Fatal(err)
	}
	s := editor.NewSession(id, r.Clone())
	if _, err := s.Apply(editor.Edit{Op: editor.OpTerrain, Q: 0, R: 0, Terrain: world.TerrainHill}); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteRealm(id); err != nil {
		t.Fatal(err)
	}

	if _, err := db.SaveSession(s); !errors.Is(err, ErrNotFound) {
		t.Fatalf("save of deleted realm = %v, want ErrNotFound", err)
	}
	if _, err := db.GetRealm(id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted realm recreated: %v", err)
	}
	if changes, _ := db.RecentChanges(id, 10); len(changes) != 0 {
		t.Fatalf("orphan changes logged: %+v", changes)
	}
	if !s.Dirty() {
		t.Fatal("failed save marked the session clean")
	}
}

func TestMeta(t *testing.T) {
	db := openTestDB(t)
	if err := db.SaveMeta("last_seed", "42"); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveMeta("last_seed", "43"); err != nil {
		t.Fatal(err)
	}
	v, err := db.GetMeta("last_seed")
	if err != nil || v != "43" {
		t.Fatalf("GetMeta = %q, %v", v, err)
	}
}
