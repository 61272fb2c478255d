package main

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/jung-kurt/gofpdf"
)

const (
	pdfPageWidth  = 210 // A4, mm
	pdfMargin     = 10
	pdfLineHeight = 5
	pdfFontSize   = 9
	pdfTabWidth   = 4
)

// The core PDF fonts are single-byte, so tree glyphs are drawn in ASCII.
var pdfTreeGlyphs = strings.NewReplacer(treeIndent, "|   ", treeBranch, "|-- ")

// generatePDF writes the report head followed by every included file, one file
// per page, with syntax highlighting.
func generatePDF(res *WalkResult, opts ComposeOptions, ld *LoadedLanguageData, outputPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	style := styles.Get("github")
	if style == nil {
		style = styles.Fallback
	}

	pdf.SetFont("Courier", "", pdfFontSize)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(pdfPageWidth-2*pdfMargin, pdfLineHeight, tr(pdfTreeGlyphs.Replace(reportHead(res, opts))), "", "L", false)

	for _, f := range res.Files {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", pdfFontSize+1)
		pdf.SetTextColor(0, 0, 0)
		pdf.MultiCell(pdfPageWidth-2*pdfMargin, pdfLineHeight, tr(fileHeaderPrefix+f.Path), "", "L", false)
		pdf.Line(pdfMargin, pdf.GetY(), pdfPageWidth-pdfMargin, pdf.GetY())
		pdf.Ln(pdfLineHeight / 2)

		content := readFileContent(f.AbsPath)
		if err := writeHighlightedCode(pdf, tr, style, content, f.Path, ld); err != nil {
			pdf.SetFont("Courier", "", pdfFontSize)
			pdf.SetTextColor(0, 0, 0)
			pdf.MultiCell(pdfPageWidth-2*pdfMargin, pdfLineHeight, tr(content), "", "L", false)
		}
	}

	if err := pdf.OutputFileAndClose(outputPath); err != nil {
		return fmt.Errorf("failed to save PDF to %s: %w", outputPath, err)
	}
	return nil
}

// pickLexer prefers a filename match, then the language table, then content analysis.
func pickLexer(filePath, content string, ld *LoadedLanguageData) chroma.Lexer {
	lexer := lexers.Match(filePath)
	if lexer == nil {
		if lang, ok := ld.GetLanguageForFile(filePath); ok {
			lexer = lexers.Get(lang)
		}
	}
	if lexer == nil {
		lexer = lexers.Analyse(content)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer)
}

func writeHighlightedCode(pdf *gofpdf.Fpdf, tr func(string) string, style *chroma.Style, content, filePath string, ld *LoadedLanguageData) error {
	iterator, err := pickLexer(filePath, content, ld).Tokenise(nil, content)
	if err != nil {
		return fmt.Errorf("tokenization failed: %w", err)
	}

	pdf.SetFont("Courier", "", pdfFontSize)
	fg := style.Get(chroma.Text).Colour
	tab := strings.Repeat(" ", pdfTabWidth)
	for token := iterator(); token != chroma.EOF; token = iterator() {
		entry := style.Get(token.Type)
		fontStyle := ""
		if entry.Bold == chroma.Yes {
			fontStyle += "B"
		}
		if entry.Italic == chroma.Yes {
			fontStyle += "I"
		}
		pdf.SetFontStyle(fontStyle)

		switch {
		case entry.Colour.IsSet():
			pdf.SetTextColor(int(entry.Colour.Red()), int(entry.Colour.Green()), int(entry.Colour.Blue()))
		case fg.IsSet():
			pdf.SetTextColor(int(fg.Red()), int(fg.Green()), int(fg.Blue()))
		default:
			pdf.SetTextColor(0, 0, 0)
		}
		pdf.Write(pdfLineHeight, tr(strings.ReplaceAll(token.Value, "\t", tab)))
	}
	pdf.Ln(-1)
	return pdf.Error()
}
