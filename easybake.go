package etiquette

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// EasybakeAction names what one line of an easybake script does.
type EasybakeAction string

const (
	EasybakeCreate  EasybakeAction = "create"
	EasybakeSynonym EasybakeAction = "synonym"
	EasybakeRename  EasybakeAction = "rename"
)

// EasybakeNote records one action an Easybake run took, for the caller to
// report back.
type EasybakeNote struct {
	Action        EasybakeAction
	QualifiedName string
}

// Easybake parses and applies a small tag-authoring language, one
// instruction per line:
//
//	a.b.c        create a, b under a, c under b (dotted hierarchy)
//	a.b+c        c is a synonym of b (which is created/nested per the dots)
//	a.b=c        rename b to c, keeping b as a synonym of c
//
// This generalizes the teacher's CreateHierarchicalKeywords, which built
// a fixed genealogy string per call, into a line-oriented script so many
// tags can be authored from one pasted block of text.
func (db *PhotoDB) Easybake(ctx context.Context, script string) ([]EasybakeNote, error) {
	var notes []EasybakeNote
	err := db.WithTransaction(ctx, func(ctx context.Context) error {
		for _, line := range strings.Split(script, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			lineNotes, err := db.easybakeLine(ctx, line)
			if err != nil {
				return fmt.Errorf("easybake line %q: %w", line, err)
			}
			notes = append(notes, lineNotes...)
		}
		return nil
	})
	return notes, err
}

func (db *PhotoDB) easybakeLine(ctx context.Context, line string) ([]EasybakeNote, error) {
	var synonymName string
	var renameName string
	path := line

	if idx := strings.Index(path, "+"); idx >= 0 {
		synonymName = path[idx+1:]
		path = path[:idx]
	} else if idx := strings.Index(path, "="); idx >= 0 {
		renameName = path[idx+1:]
		path = path[:idx]
	}

	segments := strings.Split(path, ".")
	var notes []EasybakeNote
	var parentID *int64
	var lastID int64
	qualified := ""

	for i, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			return nil, wrapError("NoYields", nil, "empty tag segment in %q", line)
		}
		if qualified == "" {
			qualified = seg
		} else {
			qualified = qualified + "." + seg
		}

		tag, err := db.GetTag(ctx, nil, seg)
		if err != nil {
			if !errors.Is(err, ErrNoSuchTag) {
				return nil, err
			}
			tag, err = db.NewTag(ctx, seg, "", nil)
			if err != nil {
				return nil, err
			}
			notes = append(notes, EasybakeNote{Action: EasybakeCreate, QualifiedName: qualified})
		}

		if parentID != nil && i > 0 {
			if err := db.AddTagChild(ctx, *parentID, tag.ID); err != nil {
				return nil, err
			}
		}
		parentID = &tag.ID
		lastID = tag.ID
	}

	if synonymName != "" {
		synonymName = strings.TrimSpace(synonymName)
		if err := db.AddTagSynonym(ctx, lastID, synonymName); err != nil {
			return nil, err
		}
		notes = append(notes, EasybakeNote{Action: EasybakeSynonym, QualifiedName: qualified + "+" + synonymName})
	}

	if renameName != "" {
		renameName = strings.TrimSpace(renameName)
		if err := db.RenameTag(ctx, lastID, renameName, true); err != nil {
			return nil, err
		}
		notes = append(notes, EasybakeNote{Action: EasybakeRename, QualifiedName: qualified + "=" + renameName})
	}

	return notes, nil
}
