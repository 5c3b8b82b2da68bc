// Package comments fetches the remote comment collection, validates each
// comment, enriches it with its post title, and writes the result as
// date-partitioned newline-delimited JSON.
package comments

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/asiflhr/data-engineering-journey/internal/core/partition"
	"github.com/asiflhr/data-engineering-journey/internal/core/record"
	"github.com/asiflhr/data-engineering-journey/internal/core/validate"
	"github.com/asiflhr/data-engineering-journey/internal/fetch"
	"github.com/asiflhr/data-engineering-journey/internal/output"
	"github.com/asiflhr/data-engineering-journey/internal/quarantine"
)

// placeholderTitle is written when the post lookup fails. Enrichment
// failures never abort the run; the comment ships without its title.
const placeholderTitle = "Error Fetching Post Title"

// Deps are the collaborators the pipeline needs.
type Deps struct {
	Fetcher   *fetch.Fetcher
	Validator *validate.Validator
	Sink      *quarantine.Sink
}

// Params configure one run.
type Params struct {
	OutputRoot string
	PageSize   int
	MaxItems   int
	RunTime    time.Time
}

// Summary reports what one run did.
type Summary struct {
	Processed  int
	Skipped    int
	Duplicates int
	OutputPath string
}

// Run fetches comments page by page, quarantining invalid ones and writing
// enriched records to the partitioned output file.
func Run(ctx context.Context, deps Deps, params Params) (*Summary, error) {
	outPath := partition.FilePath(params.OutputRoot, "comments", params.RunTime)
	writer, err := output.NewJSONLWriter(outPath)
	if err != nil {
		return nil, err
	}
	defer writer.Close()

	// Post titles repeat across comments; cache lookups per run.
	titles := make(map[int64]string)
	// The collection can shift under paginated iteration, repeating a
	// record at a page border. Dedup by canonical fingerprint.
	seen := make(map[uint64]struct{})
	summary := &Summary{OutputPath: outPath}

	err = deps.Fetcher.Pages(ctx, "/comments", params.PageSize, params.MaxItems, func(page []record.Record) error {
		for _, comment := range page {
			res, err := deps.Validator.Validate("comments_api", comment)
			if err != nil {
				return err
			}
			if !res.Valid {
				slog.Warn("[Comments] Comment failed schema validation",
					"comment_id", comment.String("id"), "reasons", res.Errors)
				summary.Skipped++
				if err := deps.Sink.Reject(quarantine.Entry{
					Source:  quarantine.SourceCommentsAPI,
					Record:  comment,
					Reasons: res.Errors,
				}); err != nil {
					return err
				}
				continue
			}

			fp := record.Fingerprint(comment)
			if _, dup := seen[fp]; dup {
				slog.Debug("[Comments] Duplicate comment across pages, skipping",
					"comment_id", comment.String("id"))
				summary.Duplicates++
				continue
			}
			seen[fp] = struct{}{}

			postID := res.Fields["postId"].(int64)
			enriched := comment.Clone()
			enriched["postTitle"] = postTitle(ctx, deps.Fetcher, titles, postID)

			if err := writer.Write(enriched); err != nil {
				return err
			}
			summary.Processed++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("[Comments] Finished processing",
		"processed", summary.Processed,
		"skipped", summary.Skipped,
		"duplicates", summary.Duplicates,
		"output", outPath)
	return summary, nil
}

// postTitle resolves a post's title, consulting the per-run cache first.
// A failed lookup degrades to the placeholder rather than failing the run.
func postTitle(ctx context.Context, fetcher *fetch.Fetcher, cache map[int64]string, postID int64) string {
	if title, ok := cache[postID]; ok {
		return title
	}

	var post record.Record
	if err := fetcher.GetJSON(ctx, fmt.Sprintf("/posts/%d", postID), &post); err != nil {
		slog.Error("[Comments] Error fetching post for enrichment", "post_id", postID, "error", err)
		cache[postID] = placeholderTitle
		return placeholderTitle
	}

	title := post.String("title")
	if title == "" {
		title = "No Title Found"
	}
	cache[postID] = title
	return title
}
