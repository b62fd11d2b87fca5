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


package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/vitrineai/semdex/backfill"
	"github.com/vitrineai/semdex/core"
)

// seedCommand loads a small demo catalog so ask/search have data to work
// with. Rows are written through the relational store and then indexed
// with a full backfill.
func seedCommand(c *cli.Context) error {
	st, err := buildStack(c)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	products := []*core.Product{
		{Name: "Cafeteira Premium", Description: "Cafeteira elétrica programável, jarra de vidro para 12 xícaras.", Category: "eletroportáteis", PriceCents: 34990, Stock: 8, Active: true},
		{Name: "Moedor de Café", Description: "Moedor elétrico com 18 níveis de moagem.", Category: "eletroportáteis", PriceCents: 18990, Stock: 3, Active: true},
		{Name: "Café em Grãos 1kg", Description: "Blend arábica torra média.", Category: "alimentos", PriceCents: 6490, Stock: 42, Active: true},
		{Name: "Caneca Térmica", Description: "Caneca inox 450ml, mantém a temperatura por 6 horas.", Category: "acessórios", PriceCents: 8990, Stock: 15, Active: true},
	}
	productIDs := make([]int64, len(products))
	for i, p := range products {
		id, err := st.store.SaveProduct(ctx, p)
		if err != nil {
			return err
		}
		productIDs[i] = id
	}

	customers := []*core.Customer{
		{Name: "Maria Souza", Email: "maria@example.com", NationalID: "123.456.789-00", City: "Recife", State: "PE", Active: true},
		{Name: "João Pereira", Email: "joao@example.com", NationalID: "987.654.321-00", City: "Curitiba", State: "PR", Active: true},
		{Name: "Ana Lima", Email: "ana@example.com", NationalID: "456.123.789-00", City: "São Paulo", State: "SP", Active: false},
	}
	customerIDs := make([]int64, len(customers))
	for i, cst := range customers {
		id, err := st.store.SaveCustomer(ctx, cst)
		if err != nil {
			return err
		}
		customerIDs[i] = id
	}

	managers := []*core.Manager{
		{Name: "Carlos Andrade", Email: "carlos@vitrine.ai", Department: "operações", Active: true},
		{Name: "Beatriz Nunes", Email: "beatriz@vitrine.ai", Department: "comercial", Active: true},
	}
	for _, m := range managers {
		if _, err := st.store.SaveManager(ctx, m); err != nil {
			return err
		}
	}

	orders := []struct {
		order *core.Order
		items []*core.OrderItem
	}{
		{
			order: &core.Order{CustomerUserID: customerIDs[0], Status: "paid", TotalCents: 41480, CreatedAt: now.AddDate(0, 0, -7)},
			items: []*core.OrderItem{
				{ProductID: productIDs[0], ProductName: "Cafeteira Premium", Quantity: 1, UnitPriceCents: 34990},
				{ProductID: productIDs[2], ProductName: "Café em Grãos 1kg", Quantity: 1, UnitPriceCents: 6490},
			},
		},
		{
			order: &core.Order{CustomerUserID: customerIDs[1], Status: "pending", TotalCents: 18990, CreatedAt: now.AddDate(0, 0, -2)},
			items: []*core.OrderItem{
				{ProductID: productIDs[1], ProductName: "Moedor de Café", Quantity: 1, UnitPriceCents: 18990},
			},
		},
		{
			order: &core.Order{CustomerUserID: customerIDs[0], Status: "cancelled", TotalCents: 8990, CreatedAt: now.AddDate(0, 0, -1)},
			items: []*core.OrderItem{
				{ProductID: productIDs[3], ProductName: "Caneca Térmica", Quantity: 1, UnitPriceCents: 8990},
			},
		},
	}
	for _, o := range orders {
		if _, err := st.store.SaveOrder(ctx, o.order, o.items); err != nil {
			return err
		}
	}

	// An unfiltered run indexes everything just seeded.
	report, err := st.engine.Run(ctx, backfill.Request{})
	if err != nil {
		return err
	}
	return printJSON(report)
}
