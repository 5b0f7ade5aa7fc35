// seed genera un script SQL para poblar el catálogo de productos y el stock inicial
// a partir de un CSV exportado del sistema anterior (normalmente ISO-8859-1).
//
// Uso: go run ./cmd/seed -in catalogo.csv [-warehouse <id>] [-latin1=false] [-out seed.sql]
// Columnas: sku;nombre;costo;precio;unidad[;stock[;minimo]]
// El stock inicial se registra como movimiento ADJUSTMENT para que quantity == Σ movimientos.
package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

type catalogRow struct {
	SKU      string
	Name     string
	Cost     decimal.Decimal
	Price    decimal.Decimal
	Unit     string
	Stock    decimal.Decimal
	MinStock decimal.Decimal
}

func main() {
	inPath := flag.String("in", "catalogo.csv", "CSV de entrada")
	outPath := flag.String("out", "", "archivo SQL de salida (vacío = stdout)")
	warehouseID := flag.String("warehouse", "", "bodega donde cargar el stock inicial")
	latin1 := flag.Bool("latin1", true, "el CSV viene en ISO-8859-1")
	flag.Parse()

	f, err := os.Open(*inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	rows, err := parseCatalog(f, *latin1)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer CSV: %v\n", err)
		os.Exit(1)
	}

	var out io.Writer = os.Stdout
	if *outPath != "" {
		file, err := os.Create(*outPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
			os.Exit(1)
		}
		defer file.Close()
		out = file
	}

	if err := writeSQL(out, rows, *warehouseID); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir SQL: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Generado: %d productos\n", len(rows))
}

// parseCatalog lee el CSV separado por ';'. La primera fila es encabezado si su costo no es numérico.
func parseCatalog(r io.Reader, latin1 bool) ([]catalogRow, error) {
	if latin1 {
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	}
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var rows []catalogRow
	seen := make(map[string]int)
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
		if len(rec) < 5 {
			return nil, fmt.Errorf("línea %d: se esperan al menos 5 columnas, hay %d", line, len(rec))
		}
		if line == 1 {
			if _, err := parseNumber(rec[2]); err != nil {
				continue
			}
		}
		row, err := toRow(rec)
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
		if prev, ok := seen[row.SKU]; ok {
			return nil, fmt.Errorf("línea %d: sku %q repetido (línea %d)", line, row.SKU, prev)
		}
		seen[row.SKU] = line
		rows = append(rows, row)
	}
	return rows, nil
}

func toRow(rec []string) (catalogRow, error) {
	row := catalogRow{
		SKU:  strings.TrimSpace(rec[0]),
		Name: strings.TrimSpace(rec[1]),
		Unit: strings.TrimSpace(rec[4]),
	}
	if row.SKU == "" || row.Name == "" {
		return row, errors.New("sku y nombre son obligatorios")
	}
	if row.Unit == "" {
		row.Unit = "unit"
	}
	var err error
	if row.Cost, err = parseNumber(rec[2]); err != nil {
		return row, fmt.Errorf("costo: %w", err)
	}
	if row.Price, err = parseNumber(rec[3]); err != nil {
		return row, fmt.Errorf("precio: %w", err)
	}
	if len(rec) > 5 && strings.TrimSpace(rec[5]) != "" {
		if row.Stock, err = parseNumber(rec[5]); err != nil {
			return row, fmt.Errorf("stock: %w", err)
		}
	}
	if len(rec) > 6 && strings.TrimSpace(rec[6]) != "" {
		if row.MinStock, err = parseNumber(rec[6]); err != nil {
			return row, fmt.Errorf("mínimo: %w", err)
		}
	}
	if row.Cost.IsNegative() || row.Price.IsNegative() || row.Stock.IsNegative() || row.MinStock.IsNegative() {
		return row, errors.New("los valores no pueden ser negativos")
	}
	return row, nil
}

// parseNumber acepta coma decimal ("1234,50") además de punto.
func parseNumber(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}
	return decimal.NewFromString(s)
}

// productID id estable derivado del SKU, para que el script sea re-ejecutable.
func productID(sku string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("pos-ledger/product/"+sku)).String()
}

func writeSQL(w io.Writer, rows []catalogRow, warehouseID string) error {
	var b strings.Builder
	b.WriteString("-- Catálogo de productos y stock inicial\n\n")
	b.WriteString("BEGIN;\n\n")

	for _, r := range rows {
		fmt.Fprintf(&b, "INSERT INTO products (id, sku, name, cost, price, unit) VALUES ('%s', '%s', '%s', %s, %s, '%s')\n",
			productID(r.SKU), escapeSQL(r.SKU), escapeSQL(r.Name), r.Cost.String(), r.Price.String(), escapeSQL(r.Unit))
		b.WriteString("ON CONFLICT (sku) DO UPDATE SET name = EXCLUDED.name, cost = EXCLUDED.cost, price = EXCLUDED.price, unit = EXCLUDED.unit, updated_at = now();\n")
	}

	if warehouseID != "" {
		b.WriteString("\n-- Stock inicial (solo si el registro no existe)\n")
		for _, r := range rows {
			if !r.Stock.IsPositive() && !r.MinStock.IsPositive() {
				continue
			}
			id := productID(r.SKU)
			wh := escapeSQL(warehouseID)
			fmt.Fprintf(&b, "WITH ins AS (\n  INSERT INTO inventory_records (product_id, warehouse_id, quantity, min_stock_level)\n")
			fmt.Fprintf(&b, "  VALUES ('%s', '%s', %s, %s)\n  ON CONFLICT (product_id, warehouse_id) DO NOTHING\n  RETURNING product_id\n)\n",
				id, wh, r.Stock.String(), r.MinStock.String())
			if r.Stock.IsPositive() {
				fmt.Fprintf(&b, "INSERT INTO stock_movements (id, product_id, warehouse_id, type, quantity, reference_type, reference_id, created_by, notes)\n")
				fmt.Fprintf(&b, "SELECT '%s', product_id, '%s', 'ADJUSTMENT', %s, 'adjustment', 'seed', 'system', 'carga inicial' FROM ins;\n",
					uuid.NewSHA1(uuid.NameSpaceOID, []byte("pos-ledger/seed/"+r.SKU+"/"+warehouseID)).String(), wh, r.Stock.String())
			} else {
				b.WriteString("SELECT 1 FROM ins;\n")
			}
		}
	}

	b.WriteString("\nCOMMIT;\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
