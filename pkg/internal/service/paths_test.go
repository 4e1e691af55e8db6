package service

import (
	"context"
	"testing"

	"github.com/yeisme/filevault/pkg/internal/errs"
	"github.com/yeisme/filevault/pkg/internal/types"
)

func TestNormalizePath(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "a/b/c.txt", want: "a/b/c.txt"},
		{in: "/a/b/c.txt", want: "a/b/c.txt"},
		{in: "a//b///c", want: "a/b/c"},
		{in: "a/./b", want: "a/b"},
		{in: `a\b\c`, want: "a/b/c"},
		{in: "a/b/", want: "a/b"},
		{in: "a/../b", wantErr: true},
		{in: "..", wantErr: true},
		{in: "", wantErr: true},
		{in: "///", wantErr: true},
		{in: ".", wantErr: true},
	}

	for _, tc := range cases {
		got, err := NormalizePath(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("NormalizePath(%q) = %q, want error", tc.in, got)
			} else if !errs.Is(err, errs.KindInvalid) {
				t.Errorf("NormalizePath(%q) error kind = %s, want invalid", tc.in, errs.KindOf(err))
			}

			continue
		}

		if err != nil {
			t.Errorf("NormalizePath(%q) unexpected error: %v", tc.in, err)

			continue
		}

		if got != tc.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCreateAndResolve(t *testing.T) {
	b := newTestBase(t)
	svc := &PathService{base: b}
	ctx := context.Background()

	created := mustCreateFile(t, b, "docs/readme.md")

	// 不同写法解析到同一身份
	for _, p := range []string{"docs/readme.md", "/docs/readme.md", "docs//readme.md"} {
		f, err := svc.Resolve(ctx, "user", "u1", p)
		if err != nil {
			t.Fatalf("resolve %q: %v", p, err)
		}

		if f.ID != created.ID {
			t.Errorf("resolve %q got file %s, want %s", p, f.ID, created.ID)
		}
	}

	if created.Filename != "readme.md" {
		t.Errorf("derived filename = %q, want readme.md", created.Filename)
	}

	// 另一个桶内同路径互不干扰
	if _, err := svc.Resolve(ctx, "user", "u2", "docs/readme.md"); !errs.Is(err, errs.KindNotFound) {
		t.Errorf("resolve in other bucket: kind = %s, want not_found", errs.KindOf(err))
	}
}

func TestCreateDuplicatePath(t *testing.T) {
	b := newTestBase(t)
	svc := &PathService{base: b}
	ctx := context.Background()

	mustCreateFile(t, b, "docs/readme.md")

	_, err := svc.Create(ctx, "user", "u1",
		types.CreateFileRequest{LogicalPath: "/docs//readme.md"}, "bob", types.Origin{})
	if !errs.Is(err, errs.KindAlreadyExists) {
		t.Fatalf("duplicate create kind = %s, want already_exists", errs.KindOf(err))
	}
}

func TestResolveUnknownBucketKind(t *testing.T) {
	b := newTestBase(t)
	svc := &PathService{base: b}

	_, err := svc.Resolve(context.Background(), "tenant", "u1", "a")
	if !errs.Is(err, errs.KindInvalid) {
		t.Fatalf("unknown bucket kind = %s, want invalid", errs.KindOf(err))
	}
}

func TestListByPrefix(t *testing.T) {
	b := newTestBase(t)
	svc := &PathService{base: b}
	ctx := context.Background()

	mustCreateFile(t, b, "docs/a.md")
	mustCreateFile(t, b, "docs/b.md")
	mustCreateFile(t, b, "img/c.png")

	files, total, err := svc.List(ctx, "user", "u1", types.ListFilesRequest{PathPrefix: "docs"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if total != 2 || len(files) != 2 {
		t.Fatalf("list docs prefix: got %d/%d, want 2/2", len(files), total)
	}

	files, total, err = svc.List(ctx, "user", "u1", types.ListFilesRequest{})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}

	if total != 3 || len(files) != 3 {
		t.Fatalf("list all: got %d/%d, want 3/3", len(files), total)
	}
}
