package checkout

import (
	"encoding/json"
	"fmt"
	"strconv"
	"unicode/utf8"

	"storefront/internal/domain"
)

const (
	metaCustomerEmail = "customer_email"
	metaCustomerName  = "customer_name"
	metaChunkCount    = "order_data_chunks"
	metaChunkPrefix   = "order_data_"

	// Gateway metadata allows 50 keys of at most 500 characters each.
	metaValueLimit = 500
	metaMaxChunks  = 47
)

// orderData is the price and quantity snapshot agreed at session creation.
type orderData struct {
	Items         []domain.OrderItem `json:"items"`
	SubtotalCents int64              `json:"subtotalCents"`
	TaxCents      int64              `json:"taxCents"`
	ShippingCents int64              `json:"shippingCents"`
	TotalCents    int64              `json:"totalCents"`
}

func encodeMetadata(email, name string, data orderData) (map[string]string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	chunks := splitRunes(string(raw), metaValueLimit)
	if len(chunks) > metaMaxChunks {
		return nil, domain.Validationf("Cart is too large to check out in one order")
	}
	meta := map[string]string{
		metaCustomerEmail: email,
		metaCustomerName:  truncateRunes(name, metaValueLimit),
		metaChunkCount:    strconv.Itoa(len(chunks)),
	}
	for i, c := range chunks {
		meta[metaChunkPrefix+strconv.Itoa(i)] = c
	}
	return meta, nil
}

func decodeMetadata(meta map[string]string) (orderData, error) {
	n, err := strconv.Atoi(meta[metaChunkCount])
	if err != nil || n < 1 || n > metaMaxChunks {
		return orderData{}, fmt.Errorf("metadata: bad %s %q", metaChunkCount, meta[metaChunkCount])
	}
	var raw []byte
	for i := 0; i < n; i++ {
		chunk, ok := meta[metaChunkPrefix+strconv.Itoa(i)]
		if !ok {
			return orderData{}, fmt.Errorf("metadata: missing chunk %d of %d", i, n)
		}
		raw = append(raw, chunk...)
	}
	var data orderData
	if err := json.Unmarshal(raw, &data); err != nil {
		return orderData{}, fmt.Errorf("metadata: decode order data: %w", err)
	}
	if len(data.Items) == 0 {
		return orderData{}, fmt.Errorf("metadata: order data has no items")
	}
	return data, nil
}

func splitRunes(s string, size int) []string {
	var out []string
	for len(s) > 0 {
		if utf8.RuneCountInString(s) <= size {
			out = append(out, s)
			break
		}
		cut, count := 0, 0
		for cut < len(s) && count < size {
			_, w := utf8.DecodeRuneInString(s[cut:])
			cut += w
			count++
		}
		out = append(out, s[:cut])
		s = s[cut:]
	}
	return out
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
