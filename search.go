package etiquette

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
)

// OrderTerm is one column of a (possibly multi-column) sort order.
type OrderTerm struct {
	Column string // one of: extension, width, height, ratio, area, duration, bytes, created, tagged_at, random
	Desc   bool
}

// searchOrderColumns maps the public orderby column name to the Photo
// field/DB column it sorts on. "random" has no DB column; it is handled
// specially wherever this map is consulted.
var searchOrderColumns = map[string]string{
	"extension": "extension",
	"width":     "width",
	"height":    "height",
	"ratio":     "aspectratio",
	"area":      "area",
	"duration":  "duration",
	"bytes":     "bytes",
	"created":   "created",
	"tagged_at": "tagged_at",
	"random":    "",
}

// SearchParams is the full set of filters one Search call accepts. Zero
// values mean "no filter" for every filter field except IsSearchHidden,
// whose zero value excludes hidden photos; leaving both Yield fields unset
// is reported as NoYields.
type SearchParams struct {
	TagExpression string // boolean expression over tag names/synonyms

	// TagMusts, TagMays, and TagForbids express the hierarchical
	// must/may/forbid semantics of spec.md directly: a photo's tag set P
	// satisfies TagMusts if, for every M, P intersects S(M) (M and all its
	// descendants); TagMays if P intersects S(M) for at least one M (or
	// TagMays is empty); TagForbids if P intersects S(F) for no F.
	// Mutually exclusive with TagExpression: if both are given, TagMusts/
	// TagMays/TagForbids are warned about and dropped.
	TagMusts   []string
	TagMays    []string
	TagForbids []string

	FilenameExpression string // boolean expression over substrings of the filename

	Extensions      string   // comma/space separated list, normalized via normalizeExtensions; "*" means any non-empty extension
	ExtensionsNot   string   // same grammar as Extensions, negated; "*" means no extension at all
	WithinDirectory []string // OR-joined filepath prefixes
	Mimetype        []string // "image", "video"; post-SQL, derived from extension
	Author          []int64  // author_id IN (...)

	Width    string // hyphen-range, e.g. "1920-" or "100-200"
	Height   string
	Area     string
	Ratio    string
	Bytes    string
	Duration string
	Created  string

	HasTags        *bool // true: photo has at least one tag; false: photo has none; nil: no filter
	HasThumbnail   *bool // true: thumbnail_relpath set; false: unset; nil: no filter
	IsSearchHidden *bool // defaults to false (hidden photos excluded) when nil

	OrderBy []OrderTerm // defaults to [{Column: "created", Desc: true}]
	Limit   int
	Offset  int

	// YieldPhotos and YieldAlbums select what Search populates in its
	// result. At least one must be set, or Search raises NoYields (or
	// collects it into Warnings if non-nil, in which case YieldPhotos is
	// assumed so the call isn't silently left with nothing to return).
	YieldPhotos bool
	YieldAlbums bool

	Warnings *WarningBag // non-nil: collect recoverable errors instead of raising
}

// normalizedSearch holds the parsed, ready-to-execute form of SearchParams.
type normalizedSearch struct {
	tagExpr      *exprNode
	tagMusts     []string
	tagMays      []string
	tagForbids   []string
	filenameExpr *exprNode

	extensions       []string
	extensionsAny    bool
	extensionsNot    []string
	extensionsNotAny bool
	directories      []string
	mimetypes        map[string]bool
	authors          []int64

	width    hyphenRange
	height   hyphenRange
	area     hyphenRange
	ratio    hyphenRange
	bytes    hyphenRange
	duration hyphenRange
	created  hyphenRange

	hasTags        *bool
	hasThumbnail   *bool
	isSearchHidden bool

	orderBy     []OrderTerm
	limit       int
	offset      int
	yieldPhotos bool
	yieldAlbums bool
}

// SearchResults is the outcome of a Search call: the matching page of
// photos and/or albums plus whatever non-fatal issues were collected.
type SearchResults struct {
	Photos   []*Photo
	Albums   []*Album
	Warnings *WarningBag
}

// Search resolves params against the catalog and returns one page of
// matching photos and/or albums. Tag matching is hierarchical: a photo
// tagged with a specific descendant satisfies a must/may/forbid/atom
// naming an ancestor, via FlatDescendants rather than a recursive SQL
// query.
func (db *PhotoDB) Search(ctx context.Context, params SearchParams) (*SearchResults, error) {
	bag := params.Warnings
	norm, err := db.normalizeSearchParams(ctx, params, bag)
	if err != nil {
		return nil, err
	}

	var results *SearchResults
	err = db.withTxn(ctx, func(ctx context.Context, txn *Txn) error {
		candidateIDs, err := db.searchCandidateIDsTxn(ctx, txn, norm, bag)
		if err != nil {
			return err
		}

		var matched []*Photo
		for _, id := range candidateIDs {
			photo, err := db.getPhotoTxn(ctx, txn, id)
			if err != nil {
				return err
			}
			ok, err := db.photoSatisfiesPostFilters(ctx, txn, photo, norm)
			if err != nil {
				return err
			}
			if ok {
				matched = append(matched, photo)
			}
		}

		matched = sortPhotos(matched, norm.orderBy)

		start := norm.offset
		if start > len(matched) {
			start = len(matched)
		}
		end := len(matched)
		if norm.limit > 0 && start+norm.limit < end {
			end = start + norm.limit
		}
		page := matched[start:end]

		out := &SearchResults{Warnings: bag}
		if norm.yieldPhotos {
			out.Photos = page
		}
		if norm.yieldAlbums {
			albums, err := db.albumsContainingPhotosTxn(ctx, txn, page)
			if err != nil {
				return err
			}
			out.Albums = albums
		}
		results = out
		return nil
	})
	return results, err
}

func (db *PhotoDB) normalizeSearchParams(ctx context.Context, params SearchParams, bag *WarningBag) (*normalizedSearch, error) {
	norm := &normalizedSearch{
		limit:       params.Limit,
		offset:      params.Offset,
		yieldPhotos: params.YieldPhotos,
		yieldAlbums: params.YieldAlbums,
	}
	if norm.offset < 0 {
		norm.offset = 0
	}

	if !norm.yieldPhotos && !norm.yieldAlbums {
		err := wrapError("NoYields", nil, "at least one of yield_photos or yield_albums must be set")
		if cerr := handle(bag, asCatalogError(err)); cerr != nil {
			return nil, cerr
		}
		// Collected as a warning rather than raised: default to photos so
		// the call still returns something rather than nothing at all.
		norm.yieldPhotos = true
	}

	hasTagStar := params.TagExpression != "" || len(params.TagMusts) > 0 || len(params.TagMays) > 0 || len(params.TagForbids) > 0

	if params.TagExpression != "" {
		tree, err := ParseExpression(params.TagExpression)
		if err := handle(bag, asCatalogError(err)); err != nil {
			return nil, err
		}
		norm.tagExpr = tree
		if len(params.TagMusts) > 0 || len(params.TagMays) > 0 || len(params.TagForbids) > 0 {
			err := wrapError("NotExclusive", nil, "tag_expression and tag_musts/tag_mays/tag_forbids are mutually exclusive; ignoring the latter")
			if cerr := handle(bag, asCatalogError(err)); cerr != nil {
				return nil, cerr
			}
		}
	} else {
		norm.tagMusts = params.TagMusts
		norm.tagMays = params.TagMays
		norm.tagForbids = params.TagForbids
	}

	if params.HasTags != nil {
		v := *params.HasTags
		norm.hasTags = &v
		if !v && hasTagStar {
			err := wrapError("NotExclusive", nil, "has_tags=false excludes every tag_* parameter; ignoring them")
			if cerr := handle(bag, asCatalogError(err)); cerr != nil {
				return nil, cerr
			}
			norm.tagExpr = nil
			norm.tagMusts = nil
			norm.tagMays = nil
			norm.tagForbids = nil
		}
	}
	if params.HasThumbnail != nil {
		v := *params.HasThumbnail
		norm.hasThumbnail = &v
	}
	norm.isSearchHidden = false
	if params.IsSearchHidden != nil {
		norm.isSearchHidden = *params.IsSearchHidden
	}

	if params.FilenameExpression != "" {
		tree, err := ParseExpression(params.FilenameExpression)
		if err := handle(bag, asCatalogError(err)); err != nil {
			return nil, err
		}
		norm.filenameExpr = tree
	}

	norm.extensions, norm.extensionsAny = normalizeExtensionSet(params.Extensions)
	norm.extensionsNot, norm.extensionsNotAny = normalizeExtensionSet(params.ExtensionsNot)

	if len(norm.extensions) > 0 && norm.extensionsAny {
		// "*" subsumes any explicit list.
		norm.extensions = nil
	}
	if len(norm.extensionsNot) > 0 && norm.extensionsNotAny {
		norm.extensionsNot = nil
	}

	for _, dir := range params.WithinDirectory {
		dir = strings.TrimSpace(dir)
		if dir != "" {
			norm.directories = append(norm.directories, dir)
		}
	}

	if len(params.Mimetype) > 0 {
		norm.mimetypes = make(map[string]bool, len(params.Mimetype))
		for _, class := range params.Mimetype {
			norm.mimetypes[strings.ToLower(strings.TrimSpace(class))] = true
		}
	}
	norm.authors = params.Author

	var err error
	if norm.width, err = parseHyphenRangeWarn(params.Width, bag); err != nil {
		return nil, err
	}
	if norm.height, err = parseHyphenRangeWarn(params.Height, bag); err != nil {
		return nil, err
	}
	if norm.area, err = parseHyphenRangeWarn(params.Area, bag); err != nil {
		return nil, err
	}
	if norm.ratio, err = parseHyphenRangeWarn(params.Ratio, bag); err != nil {
		return nil, err
	}
	if norm.bytes, err = parseHyphenRangeWarn(params.Bytes, bag); err != nil {
		return nil, err
	}
	if norm.duration, err = parseHyphenRangeWarn(params.Duration, bag); err != nil {
		return nil, err
	}
	if norm.created, err = parseHyphenRangeWarn(params.Created, bag); err != nil {
		return nil, err
	}

	norm.orderBy = normalizeOrderBy(params.OrderBy, bag)

	return norm, nil
}

// normalizeExtensionSet normalizes a raw extension-list string, reporting
// separately whether "*" (any extension) was among the entries.
func normalizeExtensionSet(raw string) (exts []string, any bool) {
	if raw == "" {
		return nil, false
	}
	for _, ext := range normalizeExtensions(raw) {
		if ext == "*" {
			any = true
			continue
		}
		exts = append(exts, ext)
	}
	return exts, any
}

// normalizeOrderBy validates each term's column against the allowed set,
// warning and dropping any that don't match, and defaults to created DESC
// if nothing valid remains.
func normalizeOrderBy(terms []OrderTerm, bag *WarningBag) []OrderTerm {
	var out []OrderTerm
	for _, term := range terms {
		column := strings.ToLower(strings.TrimSpace(term.Column))
		if _, ok := searchOrderColumns[column]; !ok {
			_ = handle(bag, asCatalogError(wrapError("OutOfOrder", nil, "unknown orderby column %q", term.Column)))
			continue
		}
		out = append(out, OrderTerm{Column: column, Desc: term.Desc})
	}
	if len(out) == 0 {
		out = []OrderTerm{{Column: "created", Desc: true}}
	}
	return out
}

func parseHyphenRangeWarn(raw string, bag *WarningBag) (hyphenRange, error) {
	r, err := parseHyphenRange(raw)
	if err != nil {
		if cerr := handle(bag, asCatalogError(err)); cerr != nil {
			return hyphenRange{}, cerr
		}
		return hyphenRange{}, nil
	}
	return r, nil
}

func asCatalogError(err error) *CatalogError {
	if err == nil {
		return nil
	}
	if ce, ok := err.(*CatalogError); ok {
		return ce
	}
	return wrapError("NoYields", err, "%s", err.Error())
}

// searchCandidateIDsTxn returns photo IDs matching every SQL-expressible
// filter (extension, directory, numeric ranges, searchhidden, has_tags,
// has_thumbnail, author, and the tag must/may/forbid EXISTS clauses).
// Tag/filename expressions and mimetype class are applied afterward in
// Go, since they require per-row evaluation SQL expresses awkwardly.
func (db *PhotoDB) searchCandidateIDsTxn(ctx context.Context, txn *Txn, norm *normalizedSearch, bag *WarningBag) ([]int64, error) {
	var clauses []string
	var args []any

	clauses = append(clauses, "searchhidden = ?")
	args = append(args, boolToInt(norm.isSearchHidden))

	if len(norm.extensions) > 0 {
		placeholders := make([]string, len(norm.extensions))
		for i, ext := range norm.extensions {
			placeholders[i] = "?"
			args = append(args, ext)
		}
		clauses = append(clauses, fmt.Sprintf("extension IN (%s)", strings.Join(placeholders, ", ")))
	} else if norm.extensionsAny {
		clauses = append(clauses, "extension != ''")
	}
	if len(norm.extensionsNot) > 0 {
		placeholders := make([]string, len(norm.extensionsNot))
		for i, ext := range norm.extensionsNot {
			placeholders[i] = "?"
			args = append(args, ext)
		}
		clauses = append(clauses, fmt.Sprintf("extension NOT IN (%s)", strings.Join(placeholders, ", ")))
	} else if norm.extensionsNotAny {
		clauses = append(clauses, "extension == ''")
	}

	if len(norm.directories) > 0 {
		var dirClauses []string
		for _, dir := range norm.directories {
			dirClauses = append(dirClauses, "filepath LIKE ?")
			args = append(args, dir+"%")
		}
		clauses = append(clauses, "("+strings.Join(dirClauses, " OR ")+")")
	}

	if len(norm.authors) > 0 {
		placeholders := make([]string, len(norm.authors))
		for i, id := range norm.authors {
			placeholders[i] = "?"
			args = append(args, id)
		}
		clauses = append(clauses, fmt.Sprintf("author_id IN (%s)", strings.Join(placeholders, ", ")))
	}

	if norm.hasTags != nil {
		sub := "SELECT 1 FROM photo_tag_rel WHERE photoid = photos.id"
		if *norm.hasTags {
			clauses = append(clauses, "EXISTS ("+sub+")")
		} else {
			clauses = append(clauses, "NOT EXISTS ("+sub+")")
		}
	}
	if norm.hasThumbnail != nil {
		if *norm.hasThumbnail {
			clauses = append(clauses, "thumbnail_relpath IS NOT NULL")
		} else {
			clauses = append(clauses, "thumbnail_relpath IS NULL")
		}
	}

	addRange(&clauses, &args, "width", norm.width)
	addRange(&clauses, &args, "height", norm.height)
	addRange(&clauses, &args, "area", norm.area)
	addRange(&clauses, &args, "aspectratio", norm.ratio)
	addRange(&clauses, &args, "bytes", norm.bytes)
	addRange(&clauses, &args, "duration", norm.duration)
	addRange(&clauses, &args, "created", norm.created)

	for _, term := range norm.orderBy {
		if term.Column == "random" {
			continue
		}
		column := searchOrderColumns[term.Column]
		clauses = append(clauses, column+" IS NOT NULL")
	}

	tagClause, tagArgs, err := db.buildTagFilterClauseTxn(ctx, txn, norm, bag)
	if err != nil {
		return nil, err
	}
	if tagClause != "" {
		clauses = append(clauses, tagClause)
		args = append(args, tagArgs...)
	}

	query := "SELECT id FROM photos"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	rows, err := txn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidate photos: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// buildTagFilterClauseTxn assembles the must/may/forbid EXISTS clauses
// per spec.md §4.8: every must's S(tag) must intersect the photo's tags,
// at least one may's S(tag) must intersect (if any mays are given), and
// no forbid's S(tag) may intersect.
func (db *PhotoDB) buildTagFilterClauseTxn(ctx context.Context, txn *Txn, norm *normalizedSearch, bag *WarningBag) (string, []any, error) {
	var clauses []string
	var args []any

	for _, name := range norm.tagMusts {
		clause, clauseArgs, err := db.tagExistsClauseTxn(ctx, txn, name, bag)
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, clause)
		args = append(args, clauseArgs...)
	}

	if len(norm.tagMays) > 0 {
		var mayClauses []string
		for _, name := range norm.tagMays {
			clause, clauseArgs, err := db.tagExistsClauseTxn(ctx, txn, name, bag)
			if err != nil {
				return "", nil, err
			}
			mayClauses = append(mayClauses, clause)
			args = append(args, clauseArgs...)
		}
		clauses = append(clauses, "("+strings.Join(mayClauses, " OR ")+")")
	}

	for _, name := range norm.tagForbids {
		clause, clauseArgs, err := db.tagExistsClauseTxn(ctx, txn, name, bag)
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, "NOT ("+clause+")")
		args = append(args, clauseArgs...)
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return "(" + strings.Join(clauses, " AND ") + ")", args, nil
}

// tagExistsClauseTxn resolves name (tag or synonym) to S(tag) — itself
// plus its flat descendants — and returns an EXISTS clause matching any
// photo carrying one of those tag IDs. An unresolvable name warns and
// yields the always-false literal "0", so a must containing it excludes
// everything, a may containing it contributes nothing extra, and a
// forbid containing it (wrapped in NOT) restricts nothing.
func (db *PhotoDB) tagExistsClauseTxn(ctx context.Context, txn *Txn, name string, bag *WarningBag) (string, []any, error) {
	tag, err := db.getTagByNameTxn(ctx, txn, name)
	if err != nil {
		if cerr := handle(bag, asCatalogError(err)); cerr != nil {
			return "", nil, cerr
		}
		return "0", nil, nil
	}
	descendants, err := db.flatDescendantsTxn(ctx, txn, tag.ID)
	if err != nil {
		return "", nil, err
	}
	ids := make([]any, 0, len(descendants)+1)
	ids = append(ids, tag.ID)
	for id := range descendants {
		ids = append(ids, id)
	}
	placeholders := make([]string, len(ids))
	for i := range ids {
		placeholders[i] = "?"
	}
	clause := fmt.Sprintf("EXISTS (SELECT 1 FROM photo_tag_rel WHERE photoid = photos.id AND tagid IN (%s))", strings.Join(placeholders, ", "))
	return clause, ids, nil
}

func addRange(clauses *[]string, args *[]any, column string, r hyphenRange) {
	if r.Low != nil {
		*clauses = append(*clauses, column+" IS NOT NULL AND "+column+" >= ?")
		*args = append(*args, *r.Low)
	}
	if r.High != nil {
		*clauses = append(*clauses, column+" IS NOT NULL AND "+column+" <= ?")
		*args = append(*args, *r.High)
	}
}

func (db *PhotoDB) photoSatisfiesPostFilters(ctx context.Context, txn *Txn, photo *Photo, norm *normalizedSearch) (bool, error) {
	if norm.tagExpr != nil {
		tagIDs, err := db.photoTagIDsTxn(ctx, txn, photo.ID)
		if err != nil {
			return false, err
		}
		ok, err := db.evaluateTagExprTxn(ctx, txn, norm.tagExpr, tagIDs)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	if norm.filenameExpr != nil {
		name := strings.ToLower(photo.DisplayName())
		if !norm.filenameExpr.Evaluate(func(atom string) bool {
			return strings.Contains(name, strings.ToLower(atom))
		}) {
			return false, nil
		}
	}
	if len(norm.mimetypes) > 0 {
		class := mimetypeClass(photo.Extension)
		if !norm.mimetypes[class] {
			return false, nil
		}
	}
	return true, nil
}

// mimetypeClass buckets a photo's extension into the coarse class
// spec.md's mimetype filter matches against ("image"/"video"). Extension
// sets are the same ones Ingest already classifies files by, so this
// reuses that classification instead of asking the stdlib mime package
// (whose extension table is seeded from the host's installed mime.types
// and so is not portable across environments).
func mimetypeClass(extension string) string {
	switch {
	case isImageExtension(extension):
		return "image"
	case isVideoExtension(extension):
		return "video"
	default:
		return ""
	}
}

// evaluateTagExprTxn resolves every atom in tree to a tag (by name or
// synonym), then evaluates the tree treating an atom as true if the photo
// carries that tag or any of its descendants.
func (db *PhotoDB) evaluateTagExprTxn(ctx context.Context, txn *Txn, tree *exprNode, photoTagIDs map[int64]bool) (bool, error) {
	resolved := make(map[string]bool, len(tree.Atoms()))
	for _, atomName := range tree.Atoms() {
		tag, err := db.getTagByNameTxn(ctx, txn, atomName)
		if err != nil {
			resolved[atomName] = false
			continue
		}
		if photoTagIDs[tag.ID] {
			resolved[atomName] = true
			continue
		}
		descendants, err := db.flatDescendantsTxn(ctx, txn, tag.ID)
		if err != nil {
			return false, err
		}
		hit := false
		for id := range photoTagIDs {
			if descendants[id] {
				hit = true
				break
			}
		}
		resolved[atomName] = hit
	}
	return tree.Evaluate(func(atom string) bool { return resolved[atom] }), nil
}

// albumsContainingPhotosTxn computes, for each photo in order, the albums
// it directly belongs to, returning the union in first-seen order.
func (db *PhotoDB) albumsContainingPhotosTxn(ctx context.Context, txn *Txn, photos []*Photo) ([]*Album, error) {
	var albums []*Album
	seen := make(map[int64]bool)
	for _, photo := range photos {
		rows, err := txn.Query(ctx, `SELECT albumid FROM album_photo_rel WHERE photoid = ?`, photo.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to query photo albums: %w", err)
		}
		var albumIDs []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, err
			}
			albumIDs = append(albumIDs, id)
		}
		rowsErr := rows.Err()
		rows.Close()
		if rowsErr != nil {
			return nil, rowsErr
		}
		for _, id := range albumIDs {
			if seen[id] {
				continue
			}
			seen[id] = true
			album, err := db.getAlbumTxn(ctx, txn, id)
			if err != nil {
				return nil, err
			}
			albums = append(albums, album)
		}
	}
	return albums, nil
}

func sortPhotos(photos []*Photo, orderBy []OrderTerm) []*Photo {
	if len(orderBy) == 1 && orderBy[0].Column == "random" {
		rand.Shuffle(len(photos), func(i, j int) { photos[i], photos[j] = photos[j], photos[i] })
		return photos
	}

	less := func(i, j int) bool {
		for _, term := range orderBy {
			if term.Column == "random" {
				continue
			}
			c := compareByColumn(photos[i], photos[j], term.Column)
			if c == 0 {
				continue
			}
			if term.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	}
	insertionSort(photos, less)
	return photos
}

func compareByColumn(a, b *Photo, column string) int {
	switch column {
	case "extension":
		return strings.Compare(a.Extension, b.Extension)
	case "width":
		return compareInt64(ptrOrZeroInt(a.Width), ptrOrZeroInt(b.Width))
	case "height":
		return compareInt64(ptrOrZeroInt(a.Height), ptrOrZeroInt(b.Height))
	case "area":
		return compareInt64(ptrOrZeroInt(a.Area), ptrOrZeroInt(b.Area))
	case "ratio":
		return compareFloat64(ptrOrZeroFloat(a.AspectRatio), ptrOrZeroFloat(b.AspectRatio))
	case "duration":
		return compareFloat64(ptrOrZeroFloat(a.Duration), ptrOrZeroFloat(b.Duration))
	case "bytes":
		return compareInt64(ptrOrZeroInt(a.Bytes), ptrOrZeroInt(b.Bytes))
	case "tagged_at":
		return compareFloat64(ptrOrZeroFloat(a.TaggedAt), ptrOrZeroFloat(b.TaggedAt))
	default: // "created"
		return compareFloat64(a.Created, b.Created)
	}
}

func ptrOrZeroInt(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

func ptrOrZeroFloat(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// insertionSort avoids pulling in sort.Slice's reflection-based comparator
// for what is, in practice, a small in-memory page of results.
func insertionSort(photos []*Photo, less func(i, j int) bool) {
	for i := 1; i < len(photos); i++ {
		for j := i; j > 0 && less(j, j-1); j-- {
			photos[j], photos[j-1] = photos[j-1], photos[j]
		}
	}
}
