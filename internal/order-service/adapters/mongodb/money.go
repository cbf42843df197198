package mongodb

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// money stores a currency amount as Decimal128. It also reads plain numbers
// so catalog documents written by other tools decode cleanly.
type money decimal.Decimal

func (m money) Decimal() decimal.Decimal { return decimal.Decimal(m) }

func (m money) MarshalBSONValue() (bsontype.Type, []byte, error) {
	d, err := primitive.ParseDecimal128(decimal.Decimal(m).String())
	if err != nil {
		return 0, nil, fmt.Errorf("encode amount %s: %w", decimal.Decimal(m), err)
	}
	return bson.MarshalValue(d)
}

func (m *money) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}

	switch t {
	case bsontype.Decimal128:
		d, err := decimal.NewFromString(raw.Decimal128().String())
		if err != nil {
			return fmt.Errorf("decode amount: %w", err)
		}
		*m = money(d)
	case bsontype.Double:
		*m = money(decimal.NewFromFloat(raw.Double()))
	case bsontype.Int32:
		*m = money(decimal.NewFromInt32(raw.Int32()))
	case bsontype.Int64:
		*m = money(decimal.NewFromInt(raw.Int64()))
	case bsontype.Null, bsontype.Undefined:
		*m = money(decimal.Zero)
	default:
		return fmt.Errorf("decode amount: unsupported BSON type %s", t)
	}
	return nil
}
