package validators

import "go.mongodb.org/mongo-driver/bson"

var CarValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"brand",
			"model",
			"year",
			"price_per_day",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"brand": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 100,
			},

			"model": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 100,
			},

			"year": bson.M{
				"bsonType": "int",
				"minimum":  1950,
				"maximum":  2100,
			},

			"price_per_day": bson.M{
				"bsonType": "long",
				"minimum":  0,
			},

			"description": bson.M{
				"bsonType":  "string",
				"maxLength": 1000,
			},

			"image_url": bson.M{
				"bsonType":  "string",
				"maxLength": 500,
			},
		},
	},
}
