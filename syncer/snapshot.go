// Copyright 2025 Vitrine AI
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package syncer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vitrineai/semdex/core"
)

// Snapshot builders. Each produces the canonical markdown for one entity
// plus its metadata map. Snapshots carry only non-sensitive fields: raw
// PII (customer email and national id, manager email) is never included.
// Text is pt-BR to match the storefront's query language.

func activeLabel(active bool) string {
	if active {
		return "ativo"
	}
	return "inativo"
}

// formatBRL renders cents as a pt-BR currency string, e.g. 125090 -> "R$ 1250,90".
func formatBRL(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%sR$ %d,%02d", sign, cents/100, cents%100)
}

func productSnapshot(p *core.Product) (content string, metadata map[string]string) {
	var b strings.Builder
	fmt.Fprintf(&b, "# Produto: %s\n\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", p.Description)
	}
	if p.Category != "" {
		fmt.Fprintf(&b, "- Categoria: %s\n", p.Category)
	}
	fmt.Fprintf(&b, "- Preço: %s\n", formatBRL(p.PriceCents))
	fmt.Fprintf(&b, "- Estoque: %d unidades\n", p.Stock)
	fmt.Fprintf(&b, "- Situação: %s\n", activeLabel(p.Active))

	content = b.String()
	metadata = map[string]string{
		"name":        p.Name,
		"category":    p.Category,
		"price_cents": strconv.FormatInt(p.PriceCents, 10),
		"stock":       strconv.Itoa(p.Stock),
		"active":      strconv.FormatBool(p.Active),
		"digest":      core.DigestFromContent(content),
	}
	return content, metadata
}

func customerSnapshot(c *core.Customer) (content string, metadata map[string]string) {
	var b strings.Builder
	fmt.Fprintf(&b, "# Cliente: %s\n\n", c.Name)
	switch {
	case c.City != "" && c.State != "":
		fmt.Fprintf(&b, "- Localização: %s / %s\n", c.City, c.State)
	case c.City != "":
		fmt.Fprintf(&b, "- Localização: %s\n", c.City)
	case c.State != "":
		fmt.Fprintf(&b, "- Localização: %s\n", c.State)
	}
	fmt.Fprintf(&b, "- Situação: %s\n", activeLabel(c.Active))
	fmt.Fprintf(&b, "- Cliente desde: %s\n", c.CreatedAt.Format("2006-01-02"))

	content = b.String()
	metadata = map[string]string{
		"name":   c.Name,
		"city":   c.City,
		"state":  c.State,
		"active": strconv.FormatBool(c.Active),
		"digest": core.DigestFromContent(content),
	}
	return content, metadata
}

func managerSnapshot(m *core.Manager) (content string, metadata map[string]string) {
	var b strings.Builder
	fmt.Fprintf(&b, "# Gestor: %s\n\n", m.Name)
	if m.Department != "" {
		fmt.Fprintf(&b, "- Departamento: %s\n", m.Department)
	}
	fmt.Fprintf(&b, "- Situação: %s\n", activeLabel(m.Active))

	content = b.String()
	metadata = map[string]string{
		"name":       m.Name,
		"department": m.Department,
		"active":     strconv.FormatBool(m.Active),
		"digest":     core.DigestFromContent(content),
	}
	return content, metadata
}

func orderSnapshot(o *core.Order, items []*core.OrderItem) (content string, metadata map[string]string) {
	var b strings.Builder
	fmt.Fprintf(&b, "# Pedido #%d\n\n", o.ID)
	fmt.Fprintf(&b, "- Status: %s\n", o.Status)
	fmt.Fprintf(&b, "- Total: %s\n", formatBRL(o.TotalCents))
	fmt.Fprintf(&b, "- Data: %s\n", o.CreatedAt.Format("2006-01-02"))
	if len(items) > 0 {
		b.WriteString("\n## Itens\n")
		for _, it := range items {
			fmt.Fprintf(&b, "- %dx %s (%s cada)\n", it.Quantity, it.ProductName, formatBRL(it.UnitPriceCents))
		}
	}

	content = b.String()
	metadata = map[string]string{
		"status":      o.Status,
		"total_cents": strconv.FormatInt(o.TotalCents, 10),
		"item_count":  strconv.Itoa(len(items)),
		"digest":      core.DigestFromContent(content),
	}
	return content, metadata
}

func orderItemSnapshot(o *core.Order, it *core.OrderItem) (content string, metadata map[string]string) {
	var b strings.Builder
	fmt.Fprintf(&b, "# Item do pedido #%d: %s\n\n", it.OrderID, it.ProductName)
	fmt.Fprintf(&b, "- Quantidade: %d\n", it.Quantity)
	fmt.Fprintf(&b, "- Preço unitário: %s\n", formatBRL(it.UnitPriceCents))
	fmt.Fprintf(&b, "- Status do pedido: %s\n", o.Status)

	content = b.String()
	metadata = map[string]string{
		"order_id":     strconv.FormatInt(it.OrderID, 10),
		"product_id":   strconv.FormatInt(it.ProductID, 10),
		"product_name": it.ProductName,
		"quantity":     strconv.Itoa(it.Quantity),
		"digest":       core.DigestFromContent(content),
	}
	return content, metadata
}
