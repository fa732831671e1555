package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/ariefcatur/go-marketplace/internal/pricing"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGStore struct{ DB *pgxpool.Pool }

var _ Store = (*PGStore)(nil)

const itemColumns = `id, name, description, price, quantity, is_published, limited,
	free_delivery, category_id, subcategory_id, sort_index, sold, created_at`

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.Name, &it.Description, &it.Price, &it.Quantity, &it.Published,
		&it.Limited, &it.FreeDelivery, &it.CategoryID, &it.SubCategoryID, &it.SortIndex, &it.Sold, &it.CreatedAt)
	return it, err
}

func collectItems(rows pgx.Rows) ([]Item, error) {
	defer rows.Close()
	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *PGStore) GetItem(ctx context.Context, id int64) (Item, error) {
	it, err := scanItem(s.DB.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, apperr.NotFound("item %d", id)
	}
	return it, err
}

func (s *PGStore) ItemsByIDs(ctx context.Context, ids []int64) (map[int64]Item, error) {
	out := make(map[int64]Item, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.DB.Query(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	items, err := collectItems(rows)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		out[it.ID] = it
	}
	return out, nil
}

func (s *PGStore) SearchItems(ctx context.Context, f Filter, order StoreOrder, limit int) ([]Item, error) {
	q, args := searchQuery(f, order, limit)
	rows, err := s.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collectItems(rows)
}

// searchQuery builds the filtered listing. The name filter is a plain
// substring match, so % and _ in user input carry no pattern meaning.
func searchQuery(f Filter, order StoreOrder, limit int) (string, []any) {
	where := []string{"is_published"}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Name != "" {
		where = append(where, "strpos(lower(name), lower("+arg(f.Name)+")) > 0")
	}
	if f.MinPrice != nil {
		where = append(where, "price > "+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		where = append(where, "price < "+arg(*f.MaxPrice))
	}
	if f.FreeDelivery {
		where = append(where, "free_delivery")
	}
	if f.Available {
		where = append(where, "quantity > 0")
	}
	if f.CategoryID > 0 {
		where = append(where, "category_id = "+arg(f.CategoryID))
	}

	orderBy := "name, price"
	switch order {
	case OrderPriceAsc:
		orderBy = "price, id"
	case OrderPriceDesc:
		orderBy = "price DESC, id"
	case OrderDateAsc:
		orderBy = "created_at, id"
	case OrderDateDesc:
		orderBy = "created_at DESC, id"
	}

	q := `SELECT ` + itemColumns + ` FROM items WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY ` + orderBy + ` LIMIT ` + arg(limit)
	return q, args
}

func (s *PGStore) Popular(ctx context.Context, limit int) ([]Item, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+itemColumns+` FROM items
		WHERE is_published AND sort_index <> 0
		ORDER BY sort_index, sold DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return collectItems(rows)
}

func (s *PGStore) LimitedEdition(ctx context.Context, limit int) ([]Item, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+itemColumns+` FROM items
		WHERE is_published AND limited ORDER BY name, price LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return collectItems(rows)
}

func (s *PGStore) SalesForItems(ctx context.Context, itemIDs []int64) (map[int64][]pricing.Sale, error) {
	out := map[int64][]pricing.Sale{}
	if len(itemIDs) == 0 {
		return out, nil
	}
	rows, err := s.DB.Query(ctx, `SELECT id, item_id, sale_price, date_from, date_to
		FROM sales WHERE item_id = ANY($1) ORDER BY id`, itemIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var sl pricing.Sale
		if err := rows.Scan(&sl.ID, &sl.ItemID, &sl.SalePrice, &sl.DateFrom, &sl.DateTo); err != nil {
			return nil, err
		}
		out[sl.ItemID] = append(out[sl.ItemID], sl)
	}
	return out, rows.Err()
}

// ReviewStats aggregates counts and mean rates for all ids in one query.
func (s *PGStore) ReviewStats(ctx context.Context, itemIDs []int64) (map[int64]ReviewStats, error) {
	out := map[int64]ReviewStats{}
	if len(itemIDs) == 0 {
		return out, nil
	}
	rows, err := s.DB.Query(ctx, `SELECT item_id, COUNT(*), COALESCE(AVG(rate), 0)::float8
		FROM reviews WHERE item_id = ANY($1) GROUP BY item_id`, itemIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var st ReviewStats
		if err := rows.Scan(&id, &st.Count, &st.Rating); err != nil {
			return nil, err
		}
		out[id] = st
	}
	return out, rows.Err()
}

func (s *PGStore) Reviews(ctx context.Context, itemID int64) ([]Review, error) {
	rows, err := s.DB.Query(ctx, `SELECT id, item_id, author, email, text, rate, created_at
		FROM reviews WHERE item_id=$1 ORDER BY created_at, id`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Review
	for rows.Next() {
		var r Review
		if err := rows.Scan(&r.ID, &r.ItemID, &r.Author, &r.Email, &r.Text, &r.Rate, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PGStore) AddReview(ctx context.Context, r *Review) error {
	return s.DB.QueryRow(ctx, `INSERT INTO reviews(item_id, author, email, text, rate)
		VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at`,
		r.ItemID, r.Author, r.Email, r.Text, r.Rate).Scan(&r.ID, &r.CreatedAt)
}

func (s *PGStore) Specifications(ctx context.Context, itemID int64) ([]Specification, error) {
	rows, err := s.DB.Query(ctx, `SELECT name, value FROM specifications WHERE item_id=$1 ORDER BY id`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Specification
	for rows.Next() {
		var sp Specification
		if err := rows.Scan(&sp.Name, &sp.Value); err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

// Categories computes the active flags in the query instead of persisting them.
func (s *PGStore) Categories(ctx context.Context) ([]Category, error) {
	rows, err := s.DB.Query(ctx, `SELECT c.id, c.title, c.sort_index,
		EXISTS (SELECT 1 FROM items i WHERE i.category_id = c.id AND i.is_published)
		FROM categories c ORDER BY c.sort_index, c.id`)
	if err != nil {
		return nil, err
	}
	var cats []Category
	idx := map[int64]int{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Title, &c.SortIndex, &c.Active); err != nil {
			rows.Close()
			return nil, err
		}
		idx[c.ID] = len(cats)
		cats = append(cats, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.DB.Query(ctx, `SELECT s.id, s.category_id, s.title, s.sort_index,
		EXISTS (SELECT 1 FROM items i WHERE i.subcategory_id = s.id)
		FROM subcategories s ORDER BY s.sort_index, s.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var sc SubCategory
		if err := rows.Scan(&sc.ID, &sc.CategoryID, &sc.Title, &sc.SortIndex, &sc.Active); err != nil {
			return nil, err
		}
		if i, ok := idx[sc.CategoryID]; ok {
			cats[i].Subcategories = append(cats[i].Subcategories, sc)
		}
	}
	return cats, rows.Err()
}

func (s *PGStore) Sales(ctx context.Context) ([]SaleLine, error) {
	rows, err := s.DB.Query(ctx, `SELECT i.id, i.name, i.price, s.sale_price, s.date_from, s.date_to
		FROM sales s JOIN items i ON i.id = s.item_id ORDER BY s.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SaleLine
	for rows.Next() {
		var l SaleLine
		if err := rows.Scan(&l.ItemID, &l.Title, &l.Price, &l.SalePrice, &l.DateFrom, &l.DateTo); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// RecordSale bumps sold counters and takes the quantity off stock, floored at zero.
func (s *PGStore) RecordSale(ctx context.Context, lines []SoldLine) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, l := range lines {
		if _, err := tx.Exec(ctx, `UPDATE items
			SET sold = sold + $2, quantity = GREATEST(quantity - $2, 0)
			WHERE id = $1`, l.ItemID, l.Count); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
