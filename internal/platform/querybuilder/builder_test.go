package querybuilder

import (
	"reflect"
	"testing"
	"time"
)

func TestSelectBuilder(t *testing.T) {
	t.Parallel()

	kickoff := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	query, args, err := Select("m.id", "m.status").
		From("matches m").
		Where(
			InStrings("m.status", []string{"LIVE", "SCHEDULED"}),
			Gte("m.kickoff_at", kickoff),
			IsNotNull("m.external_id"),
			IsNull("m.deleted_at"),
		).
		OrderBy("m.kickoff_at ASC").
		Limit(50).
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	want := "SELECT m.id, m.status FROM matches m WHERE m.status IN ($1, $2) AND m.kickoff_at >= $3 AND m.external_id IS NOT NULL AND m.deleted_at IS NULL ORDER BY m.kickoff_at ASC LIMIT 50"
	if query != want {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", want, query)
	}
	if !reflect.DeepEqual(args, []any{"LIVE", "SCHEDULED", kickoff}) {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestSelectBuilder_JoinOrForUpdate(t *testing.T) {
	t.Parallel()

	query, args, err := Select("w.id").
		From("wagers w").
		Join("JOIN matches m ON m.id = w.match_id").
		Where(Or(Eq("w.settled", false), Expr("w.points IS NULL")), Eq("m.id", "m-1")).
		ForUpdate().
		ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}

	want := "SELECT w.id FROM wagers w JOIN matches m ON m.id = w.match_id WHERE (w.settled = $1 OR w.points IS NULL) AND m.id = $2 FOR UPDATE"
	if query != want {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", want, query)
	}
	if len(args) != 2 || args[0] != false || args[1] != "m-1" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder(t *testing.T) {
	t.Parallel()

	query, args, err := InsertInto("wagers").
		Columns("id", "user_id").
		Values("w-1", "u-1").
		Suffix("ON CONFLICT (user_id, match_id, group_id) DO NOTHING").
		ToSQL()
	if err != nil {
		t.Fatalf("build insert query: %v", err)
	}

	want := "INSERT INTO wagers (id, user_id) VALUES ($1, $2) ON CONFLICT (user_id, match_id, group_id) DO NOTHING"
	if query != want {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", want, query)
	}
	if len(args) != 2 || args[0] != "w-1" || args[1] != "u-1" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestInsertBuilder_RowWidthMismatch(t *testing.T) {
	t.Parallel()

	if _, _, err := InsertInto("wagers").Columns("id", "user_id").Values("w-1").ToSQL(); err == nil {
		t.Fatalf("expected row width error")
	}
}

func TestUpdateBuilder_AtomicIncrement(t *testing.T) {
	t.Parallel()

	query, args, err := Update("group_members").
		SetExpr("points", "points + ?", int64(-50)).
		SetExpr("updated_at", "NOW()").
		Where(Eq("group_id", "g-1"), Eq("user_id", "u-1"), Expr("points + ? >= 0", int64(-50))).
		Suffix("RETURNING points").
		ToSQL()
	if err != nil {
		t.Fatalf("build update query: %v", err)
	}

	want := "UPDATE group_members SET points = points + $1, updated_at = NOW() WHERE group_id = $2 AND user_id = $3 AND points + $4 >= 0 RETURNING points"
	if query != want {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", want, query)
	}
	if !reflect.DeepEqual(args, []any{int64(-50), "g-1", "u-1", int64(-50)}) {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestDeleteBuilder_RequiresWhere(t *testing.T) {
	t.Parallel()

	if _, _, err := DeleteFrom("match_groups").ToSQL(); err == nil {
		t.Fatalf("expected error for unscoped delete")
	}
	query, args, err := DeleteFrom("match_groups").Where(Eq("match_id", "m-1")).ToSQL()
	if err != nil {
		t.Fatalf("build delete query: %v", err)
	}
	if query != "DELETE FROM match_groups WHERE match_id = $1" || len(args) != 1 {
		t.Fatalf("unexpected delete: %s %+v", query, args)
	}
}

func TestInsertModel(t *testing.T) {
	t.Parallel()

	type row struct {
		ID       string  `db:"id"`
		Stake    *int64  `db:"stake"`
		Ignored  string  `db:"-"`
		Untagged string
		hidden   string `db:"hidden"`
	}

	query, args, err := InsertModel("wagers", row{ID: "w-1", hidden: "x"}, "RETURNING id")
	if err != nil {
		t.Fatalf("insert model: %v", err)
	}
	if query != "INSERT INTO wagers (id, stake) VALUES ($1, $2) RETURNING id" {
		t.Fatalf("unexpected query: %s", query)
	}
	if len(args) != 2 || args[0] != "w-1" {
		t.Fatalf("unexpected args: %+v", args)
	}
}

func TestEqLiteral(t *testing.T) {
	t.Parallel()

	query, args, err := Select("id").From("matches").Where(EqLiteral("id", "o'hara"), IsNull("deleted_at")).ToSQL()
	if err != nil {
		t.Fatalf("build select query: %v", err)
	}
	want := "SELECT id FROM matches WHERE id = 'o''hara' AND deleted_at IS NULL"
	if query != want {
		t.Fatalf("unexpected query:\nwant: %s\ngot:  %s", want, query)
	}
	if len(args) != 0 {
		t.Fatalf("unexpected args: %+v", args)
	}
}
