package gateway

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/kitchen-storefront/internal/domain/cart"
	"github.com/xenking/kitchen-storefront/internal/domain/order"
)

// Wire format notes: decimals travel as strings to avoid float rounding,
// timestamps as ISO-8601 (RFC 3339). A document is always written whole.

// EncodeCart serializes a cart document.
func EncodeCart(items []cart.LineItem, updatedAt time.Time) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("items")
	encodeLineItems(&e, items)
	e.FieldStart("updatedAt")
	e.Str(updatedAt.UTC().Format(time.RFC3339Nano))
	e.ObjEnd()
	return e.Bytes()
}

// DecodeCart parses a cart document. Any malformed input yields an error;
// callers treat that the same as an absent document.
func DecodeCart(data []byte) ([]cart.LineItem, time.Time, error) {
	var (
		items     []cart.LineItem
		updatedAt time.Time
	)
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "items":
			var err error
			items, err = decodeLineItems(d)
			return err
		case "updatedAt":
			return decodeTime(d, &updatedAt)
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, time.Time{}, errors.Wrap(err, "decode cart document")
	}
	return items, updatedAt, nil
}

// EncodeOrder serializes an order document.
func EncodeOrder(o *order.Order) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("orderId")
	e.Str(o.OrderID)
	e.FieldStart("items")
	encodeLineItems(&e, o.Items)
	e.FieldStart("subtotal")
	e.Str(o.Subtotal.String())
	e.FieldStart("tax")
	e.Str(o.Tax.String())
	e.FieldStart("deliveryFee")
	e.Str(o.DeliveryFee.String())
	e.FieldStart("grandTotal")
	e.Str(o.GrandTotal.String())
	e.FieldStart("placedAt")
	e.Str(o.PlacedAt.UTC().Format(time.RFC3339Nano))
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.ObjEnd()
	return e.Bytes()
}

// DecodeOrder parses an order document.
func DecodeOrder(data []byte) (*order.Order, error) {
	var o order.Order
	d := jx.DecodeBytes(data)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "orderId":
			return decodeStr(d, &o.OrderID)
		case "items":
			var err error
			o.Items, err = decodeLineItems(d)
			return err
		case "subtotal":
			return decodeDecimal(d, &o.Subtotal)
		case "tax":
			return decodeDecimal(d, &o.Tax)
		case "deliveryFee":
			return decodeDecimal(d, &o.DeliveryFee)
		case "grandTotal":
			return decodeDecimal(d, &o.GrandTotal)
		case "placedAt":
			return decodeTime(d, &o.PlacedAt)
		case "status":
			var s string
			if err := decodeStr(d, &s); err != nil {
				return err
			}
			o.Status = order.Status(s)
			return nil
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode order document")
	}
	if o.OrderID == "" {
		return nil, errors.New("decode order document: missing orderId")
	}
	if !order.ValidStatus(o.Status) {
		return nil, errors.Errorf("decode order document: unknown status %q", o.Status)
	}
	return &o, nil
}

func encodeLineItems(e *jx.Encoder, items []cart.LineItem) {
	e.ArrStart()
	for i := range items {
		encodeLineItem(e, &items[i])
	}
	e.ArrEnd()
}

func encodeLineItem(e *jx.Encoder, li *cart.LineItem) {
	e.ObjStart()
	e.FieldStart("lineId")
	e.Str(li.LineID)
	e.FieldStart("itemId")
	e.Str(li.ItemID)
	e.FieldStart("name")
	e.Str(li.Name)
	e.FieldStart("basePrice")
	e.Str(li.BasePrice.String())
	e.FieldStart("unitPrice")
	e.Str(li.UnitPrice.String())
	e.FieldStart("quantity")
	e.Int(li.Quantity)
	e.FieldStart("size")
	e.Str(string(li.Size))
	e.FieldStart("sweetness")
	e.Str(string(li.Sweetness))
	e.FieldStart("additions")
	e.ArrStart()
	for _, a := range li.Additions {
		e.Str(a)
	}
	e.ArrEnd()
	e.FieldStart("icon")
	e.Str(li.Icon)
	e.ObjEnd()
}

func decodeLineItems(d *jx.Decoder) ([]cart.LineItem, error) {
	var items []cart.LineItem
	err := d.Arr(func(d *jx.Decoder) error {
		li, err := decodeLineItem(d)
		if err != nil {
			return err
		}
		items = append(items, li)
		return nil
	})
	return items, err
}

func decodeLineItem(d *jx.Decoder) (cart.LineItem, error) {
	var li cart.LineItem
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "lineId":
			return decodeStr(d, &li.LineID)
		case "itemId":
			return decodeStr(d, &li.ItemID)
		case "name":
			return decodeStr(d, &li.Name)
		case "basePrice":
			return decodeDecimal(d, &li.BasePrice)
		case "unitPrice":
			return decodeDecimal(d, &li.UnitPrice)
		case "quantity":
			q, err := d.Int()
			li.Quantity = q
			return err
		case "size":
			var s string
			if err := decodeStr(d, &s); err != nil {
				return err
			}
			li.Size = cart.Size(s)
			return nil
		case "sweetness":
			var s string
			if err := decodeStr(d, &s); err != nil {
				return err
			}
			li.Sweetness = cart.Sweetness(s)
			return nil
		case "additions":
			return d.Arr(func(d *jx.Decoder) error {
				a, err := d.Str()
				if err != nil {
					return err
				}
				li.Additions = append(li.Additions, a)
				return nil
			})
		case "icon":
			return decodeStr(d, &li.Icon)
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return li, err
	}
	if li.LineID == "" {
		return li, errors.New("line item missing lineId")
	}
	if li.Quantity < 1 {
		return li, errors.Errorf("line item %s: quantity %d out of range", li.LineID, li.Quantity)
	}
	if !cart.ValidSize(li.Size) {
		return li, errors.Errorf("line item %s: unknown size %q", li.LineID, li.Size)
	}
	if !cart.ValidSweetness(li.Sweetness) {
		return li, errors.Errorf("line item %s: unknown sweetness %q", li.LineID, li.Sweetness)
	}
	li.Additions = cart.NormalizeAdditions(li.Additions)
	return li, nil
}

func decodeStr(d *jx.Decoder, dst *string) error {
	s, err := d.Str()
	if err != nil {
		return err
	}
	*dst = s
	return nil
}

func decodeDecimal(d *jx.Decoder, dst *decimal.Decimal) error {
	s, err := d.Str()
	if err != nil {
		return err
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return errors.Wrapf(err, "parse decimal %q", s)
	}
	*dst = v
	return nil
}

func decodeTime(d *jx.Decoder, dst *time.Time) error {
	s, err := d.Str()
	if err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return errors.Wrapf(err, "parse timestamp %q", s)
	}
	*dst = t
	return nil
}
