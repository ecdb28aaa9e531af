package warehouse

import "cloud.google.com/go/bigquery"

var LinkCreatedSchema = bigquery.Schema{
	{Name: "linkId", Type: bigquery.StringFieldType, Required: true},
	{Name: "cartId", Type: bigquery.StringFieldType, Required: true},
	{Name: "createdAt", Type: bigquery.TimestampFieldType, Required: true},
	{Name: "customerId", Type: bigquery.StringFieldType},
	{Name: "customerEmail", Type: bigquery.StringFieldType},
	{Name: "currency", Type: bigquery.StringFieldType},
	{Name: "country", Type: bigquery.StringFieldType},
	{Name: "totalAmount", Type: bigquery.IntegerFieldType},
	{Name: "products", Type: bigquery.RecordFieldType, Repeated: true, Schema: bigquery.Schema{
		{Name: "productId", Type: bigquery.StringFieldType},
		{Name: "quantity", Type: bigquery.IntegerFieldType},
		{Name: "centAmount", Type: bigquery.IntegerFieldType},
	}},
	{Name: "discountCode", Type: bigquery.StringFieldType},
	{Name: "directDiscount", Type: bigquery.RecordFieldType, Schema: bigquery.Schema{
		{Name: "type", Type: bigquery.StringFieldType},
		{Name: "value", Type: bigquery.FloatFieldType},
	}},
}

var OrderConversionSchema = bigquery.Schema{
	{Name: "orderId", Type: bigquery.StringFieldType, Required: true},
	{Name: "orderNumber", Type: bigquery.StringFieldType},
	{Name: "createdAt", Type: bigquery.TimestampFieldType, Required: true},
	{Name: "cartId", Type: bigquery.StringFieldType},
	{Name: "linkId", Type: bigquery.StringFieldType, Required: true},
	{Name: "customerId", Type: bigquery.StringFieldType},
	{Name: "customerEmail", Type: bigquery.StringFieldType},
	{Name: "totalAmount", Type: bigquery.IntegerFieldType},
	{Name: "currency", Type: bigquery.StringFieldType},
	{Name: "country", Type: bigquery.StringFieldType},
	{Name: "timeToConversion", Type: bigquery.IntegerFieldType},
	{Name: "discountCode", Type: bigquery.StringFieldType},
	{Name: "discountAmount", Type: bigquery.IntegerFieldType},
	{Name: "products", Type: bigquery.RecordFieldType, Repeated: true, Schema: bigquery.Schema{
		{Name: "productId", Type: bigquery.StringFieldType},
		{Name: "quantity", Type: bigquery.IntegerFieldType},
		{Name: "price", Type: bigquery.IntegerFieldType},
		{Name: "name", Type: bigquery.StringFieldType},
	}},
	{Name: "orderTotal", Type: bigquery.IntegerFieldType},
}
