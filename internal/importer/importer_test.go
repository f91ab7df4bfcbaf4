package importer

import (
	"context"
	"strings"
	"testing"

	"storefront/internal/domain"
)

type stubProductRepo struct {
	items []domain.Product
}

func (s *stubProductRepo) UpsertBySlug(_ context.Context, p domain.Product) (*domain.Product, error) {
	s.items = append(s.items, p)
	return &p, nil
}

func TestCSVImporter_Run(t *testing.T) {
	csvData := `Name,Slug,Description,Price,Stock,Image,Category,Featured
Balon latex roșu,,Latex balloon,3,100,/img/red.jpg,baloane,true
Confetti colorat,confetti,,"12,50",,,decoratiuni,
,,,,,,,
Banner,banner-2026,,19.999,5,,,no
`
	repo := &stubProductRepo{}
	imp := NewCSVImporter(strings.NewReader(csvData), repo, nil)

	count, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("import run: %v", err)
	}
	if count != 3 || len(repo.items) != 3 {
		t.Fatalf("expected 3 products imported, got %d (%d saved)", count, len(repo.items))
	}

	first := repo.items[0]
	if first.Slug != "balon-latex-rosu" || first.PriceCents != 300 || first.Stock != 100 || !first.Featured || first.Category != "baloane" {
		t.Fatalf("unexpected first product: %+v", first)
	}
	if repo.items[1].Slug != "confetti" || repo.items[1].PriceCents != 1250 || repo.items[1].Stock != 0 {
		t.Fatalf("unexpected second product: %+v", repo.items[1])
	}
	if repo.items[2].PriceCents != 2000 || repo.items[2].Featured {
		t.Fatalf("expected rounded price on third product, got %+v", repo.items[2])
	}
}

func TestCSVImporter_PriceCentsColumn(t *testing.T) {
	csvData := "name,priceCents,price\nMug,1299,99\n"
	repo := &stubProductRepo{}

	if _, err := NewCSVImporter(strings.NewReader(csvData), repo, nil).Run(context.Background()); err != nil {
		t.Fatalf("import run: %v", err)
	}
	if repo.items[0].PriceCents != 1299 || repo.items[0].Slug != "mug" {
		t.Fatalf("expected priceCents to win, got %+v", repo.items[0])
	}
}

func TestCSVImporter_StopsOnBadRow(t *testing.T) {
	csvData := `name,price,stock
Good one,1,1
Bad one,-2,1
Never,1,1
`
	repo := &stubProductRepo{}
	count, err := NewCSVImporter(strings.NewReader(csvData), repo, nil).Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "row 3") {
		t.Fatalf("expected row 3 error, got %v", err)
	}
	if count != 1 || len(repo.items) != 1 {
		t.Fatalf("expected rows before the error to be kept, got %d", count)
	}
}

func TestCSVImporter_RequiresNameColumn(t *testing.T) {
	_, err := NewCSVImporter(strings.NewReader("title,price\nx,1\n"), &stubProductRepo{}, nil).Run(context.Background())
	if err == nil {
		t.Fatal("expected missing column error")
	}
}
