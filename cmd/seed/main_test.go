package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCatalog_Latin1ConEncabezado(t *testing.T) {
	// "Café" y "Ñame" en ISO-8859-1
	raw := []byte("sku;nombre;costo;precio;unidad;stock;minimo\n" +
		"CAF-500;Caf\xe9 molido;600;1000,50;UND;25;5\n" +
		"NAM-01;\xd1ame;1.5;3;;;\n")

	rows, err := parseCatalog(bytes.NewReader(raw), true)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Café molido", rows[0].Name)
	assert.Equal(t, "1000.5", rows[0].Price.String())
	assert.Equal(t, "25", rows[0].Stock.String())
	assert.Equal(t, "5", rows[0].MinStock.String())

	assert.Equal(t, "Ñame", rows[1].Name)
	assert.Equal(t, "unit", rows[1].Unit)
	assert.True(t, rows[1].Stock.IsZero())
}

func TestParseCatalog_Errores(t *testing.T) {
	cases := map[string]string{
		"columnas":     "A;b;1\n",
		"precio":       "A;b;1;x;UND\n",
		"negativo":     "A;b;1;2;UND;-3\n",
		"sku vacío":    ";b;1;2;UND\n",
		"sku repetido": "A;b;1;2;UND\nA;c;1;2;UND\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseCatalog(strings.NewReader(in), false)
			assert.Error(t, err)
		})
	}
}

func TestWriteSQL(t *testing.T) {
	rows, err := parseCatalog(strings.NewReader("T-1;Taza O'Brien;300;550;UND;10;2\nT-2;Plato;100;200;UND\n"), false)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writeSQL(&buf, rows, "wh-1"))
	sql := buf.String()

	assert.Contains(t, sql, "'Taza O''Brien'")
	assert.Contains(t, sql, "ON CONFLICT (sku) DO UPDATE")
	assert.Equal(t, 1, strings.Count(sql, "INSERT INTO inventory_records"), "solo productos con stock o mínimo")
	assert.Contains(t, sql, "'ADJUSTMENT', 10, 'adjustment', 'seed'")
	assert.Equal(t, productID("T-1"), productID("T-1"), "id estable por sku")
	assert.NotEqual(t, productID("T-1"), productID("T-2"))
	assert.True(t, strings.HasSuffix(sql, "COMMIT;\n"))

	buf.Reset()
	require.NoError(t, writeSQL(&buf, rows, ""))
	assert.NotContains(t, buf.String(), "inventory_records")
}
