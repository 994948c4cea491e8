// Package pipeline orchestrates the workflow stages of the commands.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/retroenv/fragtool/internal/config"
	"github.com/retroenv/fragtool/internal/decompile"
	"github.com/retroenv/fragtool/internal/deps"
	"github.com/retroenv/fragtool/internal/detector"
	"github.com/retroenv/fragtool/internal/extract"
	"github.com/retroenv/fragtool/internal/fragment"
	"github.com/retroenv/fragtool/internal/loader"
	"github.com/retroenv/fragtool/internal/options"
	"github.com/retroenv/fragtool/internal/reloc"
	"github.com/retroenv/fragtool/internal/report"
	"github.com/retroenv/fragtool/internal/scanner"
	"github.com/retroenv/fragtool/internal/store"
	"github.com/retroenv/fragtool/internal/verification"
	"github.com/retroenv/retrogolib/log"
)

// Pipeline orchestrates the complete workflow of one command.
type Pipeline struct {
	logger   *log.Logger
	settings config.Settings
	writer   io.Writer

	detector *detector.Detector
	loader   *loader.Loader
	scanner  *scanner.Scanner
}

// New creates a new pipeline that writes reports to the given writer.
func New(logger *log.Logger, settings config.Settings, writer io.Writer) *Pipeline {
	return &Pipeline{
		logger:   logger,
		settings: settings,
		writer:   writer,
		detector: detector.New(logger),
		loader:   loader.New(),
		scanner:  scanner.New(logger),
	}
}

// session is a scanned image with its catalog stored in a database.
type session struct {
	image   *loader.Image
	catalog fragment.Catalog
	store   *store.Store
	scanID  string
}

func (s *session) close() {
	_ = s.store.Close()
	_ = s.image.Close()
}

// Execute runs the command of the options on the input file.
func (p *Pipeline) Execute(ctx context.Context, opts options.Program) error {
	if opts.Command == options.Query {
		return p.query(ctx, opts.Database, opts.Stored.Dependencies)
	}

	database := store.Memory
	if opts.Database != "" {
		database = opts.Database
	}

	s, err := p.open(ctx, opts.Input, database)
	if err != nil {
		return err
	}
	defer s.close()

	switch opts.Command {
	case options.Scan:
		return p.catalog(ctx, s)
	case options.Relocs:
		return p.relocations(ctx, s, opts.Fragment)
	case options.Depends:
		if opts.All {
			return p.graph(ctx, s, opts.Reverse)
		}
		return p.dependencies(ctx, s, opts.Fragment)
	case options.Extract:
		_, err := p.extract(ctx, s, opts.Fragment, opts.Output)
		return err
	case options.ExtractAll:
		return p.extractAll(ctx, s, opts.Output)
	case options.MakeDB:
		return p.makeDatabase(ctx, s, opts.Relocations)
	case options.Decompile:
		return p.decompile(ctx, s, opts.Fragment, opts.Output)
	default:
		return fmt.Errorf("unsupported command '%s'", opts.Command)
	}
}

// open loads and scans the image and stores its catalog in the database.
func (p *Pipeline) open(ctx context.Context, file, database string) (*session, error) {
	img, err := p.loader.Load(file)
	if err != nil {
		return nil, fmt.Errorf("loading image: %w", err)
	}

	s, err := p.openImage(ctx, file, img, database)
	if err != nil {
		_ = img.Close()
		return nil, err
	}
	return s, nil
}

func (p *Pipeline) openImage(ctx context.Context, file string, img *loader.Image, database string) (*session, error) {
	format, err := p.detector.Detect(img.Bytes())
	if err != nil {
		return nil, fmt.Errorf("detecting image format: %w", err)
	}

	catalog := p.scanner.Scan(img.Bytes())
	productCode := fragment.ProductCode(img.Bytes())
	p.logger.Info("Scanned ROM image",
		log.String("file", file),
		log.String("pcode", productCode),
		log.Stringer("format", format),
		log.Int("fragments", len(catalog)))

	db, err := store.Open(ctx, p.logger, database)
	if err != nil {
		return nil, fmt.Errorf("opening fragment database: %w", err)
	}

	scan := store.Scan{
		ProductCode: productCode,
		File:        file,
		Size:        img.Size(),
	}
	scanID, err := db.AddScan(ctx, scan, catalog)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storing fragment catalog: %w", err)
	}

	return &session{
		image:   img,
		catalog: catalog,
		store:   db,
		scanID:  scanID,
	}, nil
}

func (p *Pipeline) catalog(ctx context.Context, s *session) error {
	entries, err := s.store.Fragments(ctx, s.scanID)
	if err != nil {
		return fmt.Errorf("reading fragment catalog: %w", err)
	}
	if err := report.Catalog(p.writer, entries); err != nil {
		return fmt.Errorf("writing fragment catalog: %w", err)
	}
	return nil
}

func (p *Pipeline) fragment(ctx context.Context, s *session, number int) (fragment.Entry, []byte, error) {
	entry, err := s.store.Fragment(ctx, s.scanID, number)
	if err != nil {
		return fragment.Entry{}, nil, fmt.Errorf("looking up fragment: %w", err)
	}
	return entry, entry.Data(s.image.Bytes()), nil
}

func (p *Pipeline) relocations(ctx context.Context, s *session, number int) error {
	entry, data, err := p.fragment(ctx, s, number)
	if err != nil {
		return err
	}

	resolved, err := reloc.ResolveAll(data, entry.Segment)
	if err != nil {
		return fmt.Errorf("resolving relocations of fragment %d: %w", number, err)
	}
	if err := report.Relocations(p.writer, resolved); err != nil {
		return fmt.Errorf("writing relocations: %w", err)
	}
	return nil
}

func (p *Pipeline) dependencies(ctx context.Context, s *session, number int) error {
	entry, data, err := p.fragment(ctx, s, number)
	if err != nil {
		return err
	}

	dependencies, err := deps.Of(entry, data)
	if err != nil {
		return fmt.Errorf("resolving dependencies of fragment %d: %w", number, err)
	}
	if err := report.Dependencies(p.writer, dependencies); err != nil {
		return fmt.Errorf("writing dependencies: %w", err)
	}
	return nil
}

func (p *Pipeline) graph(ctx context.Context, s *session, reverse bool) error {
	builder := deps.New(p.logger, p.settings.Workers)
	results, err := builder.All(ctx, s.image.Bytes(), s.catalog)
	if err != nil {
		return fmt.Errorf("resolving dependencies: %w", err)
	}

	if reverse {
		err = report.ReverseGraph(p.writer, deps.Reverse(results))
	} else {
		err = report.Graph(p.writer, results)
	}
	if err != nil {
		return fmt.Errorf("writing dependency graph: %w", err)
	}
	return nil
}

func (p *Pipeline) extractor(output options.Output) *extract.Extractor {
	directory := output.Directory
	if directory == "" {
		directory = p.settings.OutputDirectory
	}
	return extract.New(p.logger, directory)
}

func (p *Pipeline) extract(ctx context.Context, s *session, number int, output options.Output) (string, error) {
	entry, _, err := p.fragment(ctx, s, number)
	if err != nil {
		return "", err
	}
	return p.writeFragment(s, p.extractor(output), entry, output.Verify)
}

func (p *Pipeline) extractAll(ctx context.Context, s *session, output options.Output) error {
	entries, err := s.store.Fragments(ctx, s.scanID)
	if err != nil {
		return fmt.Errorf("reading fragment catalog: %w", err)
	}

	extractor := p.extractor(output)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("extracting fragments: %w", err)
		}
		if _, err := p.writeFragment(s, extractor, entry, output.Verify); err != nil {
			return err
		}
	}
	p.logger.Info("Extracted fragments", log.Int("count", len(entries)))
	return nil
}

func (p *Pipeline) writeFragment(s *session, extractor *extract.Extractor, entry fragment.Entry, verify bool) (string, error) {
	path, err := extractor.Write(s.image.Bytes(), entry)
	if err != nil {
		return "", fmt.Errorf("extracting fragment %d: %w", entry.Number, err)
	}
	if verify {
		if err := verification.VerifyFile(p.logger, path, entry.Data(s.image.Bytes())); err != nil {
			return "", fmt.Errorf("verification failed: %w", err)
		}
		p.logger.Debug("Verification successful", log.String("file", path))
	}
	return path, nil
}

func (p *Pipeline) makeDatabase(ctx context.Context, s *session, relocations bool) error {
	if !relocations {
		return nil
	}

	builder := deps.New(p.logger, p.settings.Workers)
	results, err := builder.All(ctx, s.image.Bytes(), s.catalog)
	if err != nil {
		return fmt.Errorf("resolving relocations: %w", err)
	}

	for _, result := range results {
		if result.Err != nil {
			continue
		}
		if err := s.store.AddRelocations(ctx, s.scanID, result.Fragment, result.Relocations); err != nil {
			return fmt.Errorf("storing relocations: %w", err)
		}
	}
	return nil
}

func (p *Pipeline) decompile(ctx context.Context, s *session, number int, output options.Output) error {
	entry, _, err := p.fragment(ctx, s, number)
	if err != nil {
		return err
	}
	path, err := p.writeFragment(s, p.extractor(output), entry, output.Verify)
	if err != nil {
		return err
	}

	decompiler := decompile.New(p.logger, p.settings.DecompilerCommand)
	if err := decompiler.Run(ctx, path, entry.EntryPoint, entry.Segment); err != nil {
		return fmt.Errorf("decompiling fragment %d: %w", number, err)
	}
	return nil
}

// query lists the scans stored in an existing database, optionally with the
// dependencies derived from the stored relocations.
func (p *Pipeline) query(ctx context.Context, database string, dependencies bool) error {
	if _, err := os.Stat(database); err != nil {
		return fmt.Errorf("opening fragment database: %w", err)
	}
	db, err := store.Open(ctx, p.logger, database)
	if err != nil {
		return fmt.Errorf("opening fragment database: %w", err)
	}
	defer func() { _ = db.Close() }()

	scans, err := db.Scans(ctx)
	if err != nil {
		return fmt.Errorf("reading scans: %w", err)
	}

	for _, scan := range scans {
		entries, err := db.Fragments(ctx, scan.ID)
		if err != nil {
			return fmt.Errorf("reading fragment catalog: %w", err)
		}
		if err := report.Scan(p.writer, scan.ID, scan.ProductCode, scan.File, len(entries)); err != nil {
			return fmt.Errorf("writing scan: %w", err)
		}
		if !dependencies {
			continue
		}

		results, err := storedDependencies(ctx, db, scan.ID, entries)
		if err != nil {
			return err
		}
		if err := report.Graph(p.writer, results); err != nil {
			return fmt.Errorf("writing dependency graph: %w", err)
		}
	}
	return nil
}

func storedDependencies(ctx context.Context, db *store.Store, scanID string,
	entries []fragment.Entry) ([]deps.Result, error) {

	var results []deps.Result
	for i, entry := range entries {
		// entries are ordered by number, stored relocations are keyed by it
		if i > 0 && entries[i-1].Number == entry.Number {
			continue
		}
		dependencies, err := db.Dependencies(ctx, scanID, entry.Number)
		if err != nil {
			return nil, fmt.Errorf("reading dependencies of fragment %d: %w", entry.Number, err)
		}
		results = append(results, deps.Result{Fragment: entry, Dependencies: dependencies})
	}
	return results, nil
}
