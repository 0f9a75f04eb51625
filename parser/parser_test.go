package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-stores/models"
)

func mustDoc(t *testing.T, markup string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		t.Fatalf("parse markup: %v", err)
	}
	return doc
}

func TestResolverExtractText(t *testing.T) {
	doc := mustDoc(t, `<div class="card">
		<h2 class="title">  Red <b>Shoes</b>  </h2>
		<h2 class="title">Blue Shoes</h2>
		<span class="blank">   </span>
	</div>`)
	r := NewResolver(8)

	tests := []struct {
		name     string
		selector string
		want     string
		wantOK   bool
	}{
		{name: "first match with nested text", selector: ".title", want: "Red Shoes", wantOK: true},
		{name: "empty selector", selector: "", wantOK: false},
		{name: "invalid selector", selector: "div[class", wantOK: false},
		{name: "no match", selector: ".missing", wantOK: false},
		{name: "whitespace only text", selector: ".blank", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.ExtractText(doc.Selection, tt.selector)
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("ExtractText(%q) = %q/%v, want %q/%v", tt.selector, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestResolverExtractAttribute(t *testing.T) {
	doc := mustDoc(t, `<div><a class="link" href="/p/1">one</a><a class="link" href="/p/2">two</a><img class="pic"></div>`)
	r := NewResolver(8)

	if got, ok := r.ExtractAttribute(doc.Selection, "a.link", "href"); !ok || got != "/p/1" {
		t.Fatalf("href = %q/%v, want /p/1", got, ok)
	}
	if _, ok := r.ExtractAttribute(doc.Selection, "img.pic", "src"); ok {
		t.Fatalf("missing attribute should not be found")
	}
	if _, ok := r.ExtractAttribute(doc.Selection, "", "href"); ok {
		t.Fatalf("empty selector should not be found")
	}
	if _, ok := r.ExtractAttribute(doc.Selection, "a[href", "href"); ok {
		t.Fatalf("invalid selector should not be found")
	}
}

func TestResolverExtractTexts(t *testing.T) {
	doc := mustDoc(t, `<ul><li>a</li><li> </li><li>b</li></ul>`)
	r := NewResolver(8)

	got := r.ExtractTexts(doc.Selection, "li")
	if strings.Join(got, ",") != "a,b" {
		t.Fatalf("texts = %v, want [a b]", got)
	}
	if got := r.ExtractTexts(doc.Selection, "li["); got != nil {
		t.Fatalf("invalid selector texts = %v, want nil", got)
	}
}

func TestResolverValidateSelector(t *testing.T) {
	r := NewResolver(2)

	if err := r.ValidateSelector(".item > a"); err != nil {
		t.Fatalf("valid selector rejected: %v", err)
	}

	for _, selector := range []string{"", "div[class", ".item)"} {
		err := r.ValidateSelector(selector)
		var selErr SelectorError
		if !errors.As(err, &selErr) {
			t.Fatalf("ValidateSelector(%q) = %v, want SelectorError", selector, err)
		}
		if selErr.Selector != selector {
			t.Fatalf("selector = %q, want %q", selErr.Selector, selector)
		}
	}

	// cached failures are reported again
	if err := r.ValidateSelector("div[class"); err == nil {
		t.Fatalf("cached invalid selector should still fail")
	}
}

func TestResolverValidateProfile(t *testing.T) {
	r := NewResolver(8)
	profile := testProfile()

	if err := r.ValidateProfile(profile); err != nil {
		t.Fatalf("valid profile rejected: %v", err)
	}

	profile.ImageSelector = "img["
	err := r.ValidateProfile(profile)
	if err == nil || !strings.Contains(err.Error(), "image selector") {
		t.Fatalf("expected image selector error, got %v", err)
	}

	profile = testProfile()
	profile.PriceSelector = ""
	if err := r.ValidateProfile(profile); err == nil || !strings.Contains(err.Error(), "price selector") {
		t.Fatalf("expected missing price selector error, got %v", err)
	}
}

func TestSuggestSelectors(t *testing.T) {
	for _, kind := range models.FieldKinds {
		if len(SuggestSelectors(kind)) == 0 {
			t.Fatalf("no suggestions for %s", kind)
		}
	}
	if got := SuggestSelectorsFor("name"); len(got) == 0 || got[0] != ".product-title" {
		t.Fatalf("name suggestions = %v", got)
	}
	if got := SuggestSelectorsFor("rating"); len(got) != 0 {
		t.Fatalf("unknown kind suggestions = %v, want empty", got)
	}
	if got := SuggestSelectors(models.FieldKind(42)); len(got) != 0 {
		t.Fatalf("out of range kind suggestions = %v, want empty", got)
	}
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name      string
		base      string
		candidate string
		want      string
	}{
		{name: "absolute http", base: "https://shop.example/cat", candidate: "http://cdn.example/a.png", want: "http://cdn.example/a.png"},
		{name: "absolute https", base: "https://shop.example/cat", candidate: "https://cdn.example/a.png", want: "https://cdn.example/a.png"},
		{name: "protocol relative", base: "http://shop.example/cat", candidate: "//cdn.example/a.png", want: "https://cdn.example/a.png"},
		{name: "absolute path", base: "https://shop.example/cat", candidate: "/img/a.png", want: "https://shop.example/img/a.png"},
		{name: "absolute path keeps port", base: "http://127.0.0.1:8080/search?q=x", candidate: "/p/1", want: "http://127.0.0.1:8080/p/1"},
		{name: "absolute path with unparsable base", base: "::not a url", candidate: "/img/a.png", want: "/img/a.png"},
		{name: "absolute path with hostless base", base: "shop.example/cat", candidate: "/img/a.png", want: "/img/a.png"},
		{name: "relative path", base: "https://shop.example/cat/", candidate: "item/1", want: "https://shop.example/cat/item/1"},
		{name: "relative path without slash", base: "https://shop.example/cat", candidate: "item/1", want: "https://shop.example/cat/item/1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveURL(tt.base, tt.candidate); got != tt.want {
				t.Fatalf("ResolveURL(%q, %q) = %q, want %q", tt.base, tt.candidate, got, tt.want)
			}
		})
	}
}

func TestResolveURLAbsoluteIsIdempotent(t *testing.T) {
	for _, candidate := range []string{"http://a.example", "https://b.example/x?y=1", "httpfoo"} {
		once := ResolveURL("https://base.example", candidate)
		if once != candidate {
			t.Fatalf("ResolveURL changed %q to %q", candidate, once)
		}
	}
}

func TestValidateProduct(t *testing.T) {
	tests := []struct {
		name    string
		product models.Product
		wantErr bool
	}{
		{name: "valid", product: models.Product{Name: "Shoe", Price: "$10", URL: "https://x.com/p/1"}},
		{name: "missing name", product: models.Product{Price: "$10", URL: "https://x.com/p/1"}, wantErr: true},
		{name: "missing price", product: models.Product{Name: "Shoe", URL: "https://x.com/p/1"}, wantErr: true},
		{name: "missing url", product: models.Product{Name: "Shoe", Price: "$10"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProduct(tt.product)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateProduct() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
