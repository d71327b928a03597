package validators

import "go.mongodb.org/mongo-driver/bson"

var ReservationLogValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"reservation_id",
			"user_id",
			"action",
			"log_date",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"reservation_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 36,
				"maxLength": 36,
			},

			"action": bson.M{
				"bsonType": "string",
				"enum": []string{
					"Deleted",
				},
			},

			"log_date": bson.M{
				"bsonType": "date",
			},
		},
	},
}
